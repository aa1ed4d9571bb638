/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "context"

// Cache is a named key/value store used by the cache aspect.
//
// Cache 缓存接口。
type Cache interface {
	// Name returns the cache name.
	// Name 缓存名称
	Name() string
	// Get returns the value stored under key. ok is false on a miss.
	// Get 获取缓存值，未命中时 ok 为 false
	Get(ctx context.Context, key string) (value any, ok bool, err error)
	// Put stores value under key.
	// Put 设置缓存值
	Put(ctx context.Context, key string, value any) error
	// Evict removes key. Removing a missing key is not an error.
	// Evict 删除缓存项
	Evict(ctx context.Context, key string) error
	// Clear removes every entry of this cache.
	// Clear 清空缓存
	Clear(ctx context.Context) error
}

// CacheManager resolves caches by name.
//
// CacheManager 缓存管理器，根据名称获取缓存。
type CacheManager interface {
	GetCache(name string) (Cache, error)
	CacheNames() []string
}
