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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSturdycConfigValidate(t *testing.T) {
	assert.Nil(t, DefaultSturdycConfig().Validate())

	tests := []struct {
		field  string
		modify func(c *SturdycConfig)
	}{
		{field: "Capacity", modify: func(c *SturdycConfig) { c.Capacity = 0 }},
		{field: "NumShards", modify: func(c *SturdycConfig) { c.NumShards = -1 }},
		{field: "TTL", modify: func(c *SturdycConfig) { c.TTL = 0 }},
		{field: "EvictionPercentage", modify: func(c *SturdycConfig) { c.EvictionPercentage = 101 }},
		{field: "EvictionInterval", modify: func(c *SturdycConfig) { c.EvictionInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := DefaultSturdycConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			var configErr *ConfigError
			assert.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.field, configErr.Field)

			_, err = NewSturdycManager(cfg)
			assert.NotNil(t, err)
		})
	}
}

func TestSturdycCache(t *testing.T) {
	ctx := context.Background()
	m, err := NewSturdycManager(DefaultSturdycConfig())
	assert.Nil(t, err)
	orders, _ := m.GetCache("orders")
	customers, _ := m.GetCache("customers")

	assert.Nil(t, orders.Put(ctx, "1", "order-1"))
	assert.Nil(t, customers.Put(ctx, "1", "alice"))

	v, ok, err := orders.Get(ctx, "1")
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", v)
	v, ok, _ = customers.Get(ctx, "1")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	assert.Nil(t, orders.Evict(ctx, "1"))
	_, ok, _ = orders.Get(ctx, "1")
	assert.False(t, ok)

	// clearing one cache leaves the others of the shared client alone
	assert.Nil(t, orders.Put(ctx, "2", "order-2"))
	assert.Nil(t, orders.Clear(ctx))
	_, ok, _ = orders.Get(ctx, "2")
	assert.False(t, ok)
	_, ok, _ = customers.Get(ctx, "1")
	assert.True(t, ok)
}

func TestSturdycCacheNames(t *testing.T) {
	ctx := context.Background()
	m, err := NewSturdycManager(DefaultSturdycConfig(), "a", "a::b")
	assert.Nil(t, err)
	assert.Equal(t, []string{"a"}, m.CacheNames())

	_, err = m.GetCache("a::b")
	assert.True(t, errors.Is(err, ErrInvalidCacheName))
	_, err = m.GetCache("")
	assert.True(t, errors.Is(err, ErrInvalidCacheName))

	dynamic, err := NewSturdycManager(DefaultSturdycConfig())
	assert.Nil(t, err)
	_, err = dynamic.GetCache("orders::archive")
	assert.True(t, errors.Is(err, ErrInvalidCacheName))
	orders, err := dynamic.GetCache("orders")
	assert.Nil(t, err)
	// a separator inside a key stays within its cache
	assert.Nil(t, orders.Put(ctx, "archive::1", "order-1"))
	v, ok, err := orders.Get(ctx, "archive::1")
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", v)
	assert.Equal(t, []string{"orders"}, dynamic.CacheNames())
}
