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

package store

import (
	"context"
	"sync"
	"time"

	"github.com/rulego/weave/api/types"
)

var _ types.Cache = (*MemoryCache)(nil)

// MemoryCache is a map backed cache with an optional time to live.
type MemoryCache struct {
	name     string
	ttl      time.Duration
	interval time.Duration

	mu    sync.RWMutex
	items map[string]item
	// sweeper is closed to stop the running collector, nil when none runs.
	sweeper chan struct{}
}

// item expires at expiration in unix nanos, 0 never.
type item struct {
	value      any
	expiration int64
}

// NewMemoryCache creates a cache whose entries live for ttl, 0 keeps them
// until evicted. Expired entries are collected every gcInterval, 5 minutes
// when gcInterval is 0. Collection runs only while some entry can expire.
func NewMemoryCache(name string, ttl, gcInterval time.Duration) *MemoryCache {
	if gcInterval <= 0 {
		gcInterval = 5 * time.Minute
	}
	return &MemoryCache{
		name:     name,
		ttl:      ttl,
		interval: gcInterval,
		items:    make(map[string]item),
	}
}

// NewMemoryManager creates a manager of memory caches sharing ttl.
func NewMemoryManager(ttl time.Duration, names ...string) *Manager {
	return NewManager(func(name string) types.Cache {
		return NewMemoryCache(name, ttl, 0)
	}, names...)
}

// Name implements types.Cache.
func (c *MemoryCache) Name() string {
	return c.name
}

// Put implements types.Cache.
func (c *MemoryCache) Put(_ context.Context, key string, value any) error {
	var expiration int64
	if c.ttl > 0 {
		expiration = time.Now().Add(c.ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiration: expiration}
	if expiration > 0 && c.sweeper == nil {
		c.sweeper = make(chan struct{})
		go c.sweep(c.sweeper)
	}
	return nil
}

// Get implements types.Cache. Expired entries are misses.
func (c *MemoryCache) Get(_ context.Context, key string) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || it.expired(time.Now().UnixNano()) {
		return nil, false, nil
	}
	return it.value, true, nil
}

// Evict implements types.Cache.
func (c *MemoryCache) Evict(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Clear implements types.Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item)
	return nil
}

// Len returns the number of stored entries, expired ones not yet collected included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StopGC stops collecting expired entries until the next expirable Put.
// 停止过期数据回收。
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweeper != nil {
		close(c.sweeper)
		c.sweeper = nil
	}
}

// IsGCRunning reports whether expired entries are being collected.
func (c *MemoryCache) IsGCRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sweeper != nil
}

func (c *MemoryCache) sweep(done chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			if !c.purge(now.UnixNano(), done) {
				return
			}
		}
	}
}

// purge drops the entries expired at now and reports whether the sweeper
// done should keep running.
func (c *MemoryCache) purge(now int64, done chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweeper != done {
		return false
	}
	pending := false
	for k, it := range c.items {
		switch {
		case it.expired(now):
			delete(c.items, k)
		case it.expiration > 0:
			pending = true
		}
	}
	if !pending {
		// 没有可过期的数据，停止回收
		c.sweeper = nil
	}
	return pending
}

func (it item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}
