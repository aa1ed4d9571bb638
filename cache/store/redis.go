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
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rulego/weave/api/types"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisConfig configures a redis manager.
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string `mapstructure:"addr"`
	// Password is the Redis password (optional)
	Password string `mapstructure:"password"`
	// DB is the Redis database number
	DB int `mapstructure:"db"`
	// Prefix is prepended to every key, before the cache name.
	Prefix string `mapstructure:"prefix"`
	// TTL is the time to live of entries, 0 keeps them until evicted.
	TTL time.Duration `mapstructure:"ttl"`
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "weave:",
		TTL:    10 * time.Minute,
	}
}

// Validate checks the config values.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "can not be empty"}
	}
	if c.TTL < 0 {
		return &ConfigError{Field: "TTL", Message: "must be non-negative"}
	}
	return nil
}

// RedisCache is a cache stored in redis. Values are encoded with msgpack, so
// structs come back as maps and the cache aspect converts them to the
// method result types.
type RedisCache struct {
	name   string
	prefix string
	ttl    time.Duration
	client redis.UniversalClient
}

var _ types.Cache = (*RedisCache)(nil)

// NewRedisManager connects to the server of cfg and creates a manager of redis caches.
func NewRedisManager(cfg RedisConfig, names ...string) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis %s: %w", cfg.Addr, err)
	}
	return NewRedisManagerWithClient(client, cfg, names...), nil
}

// NewRedisManagerWithClient creates a manager of redis caches over an existing client.
func NewRedisManagerWithClient(client redis.UniversalClient, cfg RedisConfig, names ...string) *Manager {
	return NewManager(func(name string) types.Cache {
		return &RedisCache{name: name, prefix: cfg.Prefix + name + keySeparator, ttl: cfg.TTL, client: client}
	}, names...)
}

// Name implements types.Cache.
func (c *RedisCache) Name() string {
	return c.name
}

// Get implements types.Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (any, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var v any
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&v); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return v, true, nil
}

// Put implements types.Cache.
func (c *RedisCache) Put(ctx context.Context, key string, value any) error {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.prefix+key, b, c.ttl).Err()
}

// Evict implements types.Cache.
func (c *RedisCache) Evict(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Clear implements types.Cache. Keys are found with SCAN.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
