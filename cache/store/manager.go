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

// Package store provides cache managers for the cache aspect: an in-memory
// store, a sturdyc backed store and a redis backed store.
//
// Package store 缓存存储实现。
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
)

var (
	// ErrCacheNotConfigured is returned by static managers for unknown names.
	ErrCacheNotConfigured = errors.New("cache not configured")
	// ErrInvalidCacheName is returned for empty names and names containing the key separator.
	ErrInvalidCacheName = errors.New("invalid cache name")
)

// keySeparator separates the cache name from the key in shared stores.
const keySeparator = "::"

var _ types.CacheManager = (*Manager)(nil)

// Manager hands out the caches created by a factory. A manager created
// with names is static and only knows those caches, otherwise caches are
// created on first use.
//
// Manager 缓存管理器。
type Manager struct {
	caches  *xsync.MapOf[string, types.Cache]
	create  func(name string) types.Cache
	dynamic bool
}

// NewManager creates a manager over create. Invalid names are ignored.
func NewManager(create func(name string) types.Cache, names ...string) *Manager {
	m := &Manager{
		caches:  xsync.NewMapOf[string, types.Cache](),
		create:  create,
		dynamic: len(names) == 0,
	}
	for _, name := range names {
		if validName(name) == nil {
			m.caches.Store(name, create(name))
		}
	}
	return m
}

// GetCache implements types.CacheManager.
func (m *Manager) GetCache(name string) (types.Cache, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if c, ok := m.caches.Load(name); ok {
		return c, nil
	}
	if !m.dynamic {
		return nil, fmt.Errorf("%w: %q", ErrCacheNotConfigured, name)
	}
	c, _ := m.caches.LoadOrCompute(name, func() types.Cache {
		return m.create(name)
	})
	return c, nil
}

// CacheNames implements types.CacheManager.
func (m *Manager) CacheNames() []string {
	var names []string
	m.caches.Range(func(name string, _ types.Cache) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// validName rejects names that would alias another cache's keys in shared
// stores, where entries are stored as name + "::" + key.
func validName(name string) error {
	if name == "" || strings.Contains(name, keySeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidCacheName, name)
	}
	return nil
}
