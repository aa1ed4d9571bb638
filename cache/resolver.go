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

package cache

import (
	"context"
	"fmt"

	"github.com/rulego/weave/api/types"
)

// CacheResolver returns the caches an operation works on for one call.
//
// CacheResolver 缓存解析器。
type CacheResolver interface {
	ResolveCaches(op Operation, inv types.Invocation) ([]types.Cache, error)
}

// ManagerResolver resolves the cache names of operations through a cache manager.
type ManagerResolver struct {
	Manager types.CacheManager
}

// NewManagerResolver creates a resolver over manager.
func NewManagerResolver(manager types.CacheManager) *ManagerResolver {
	return &ManagerResolver{Manager: manager}
}

// ResolveCaches implements CacheResolver.
func (r *ManagerResolver) ResolveCaches(op Operation, _ types.Invocation) ([]types.Cache, error) {
	names := op.Base().CacheNames
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %v has no cache names", ErrInvalidOperation, op)
	}
	caches := make([]types.Cache, 0, len(names))
	for _, name := range names {
		c, err := r.Manager.GetCache(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrCacheNotFound, name, err)
		}
		caches = append(caches, c)
	}
	return caches, nil
}

// ArgNamer is optionally implemented by targets to name the arguments of
// their methods for #name references.
type ArgNamer interface {
	ArgNames(method string) []string
}

// ErrorHandler decides what happens to a failed cache store access. A nil
// return continues the call as if the access had missed.
type ErrorHandler func(ctx context.Context, op Operation, err error) error

// PropagateErrors returns every cache error to the caller.
func PropagateErrors(_ context.Context, _ Operation, err error) error {
	return err
}

// LogErrors logs cache errors and carries on without the cache.
func LogErrors(logger types.Logger) ErrorHandler {
	return func(_ context.Context, op Operation, err error) error {
		logger.Printf("cache operation %v failed: %v", op, err)
		return nil
	}
}
