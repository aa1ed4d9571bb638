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
	"strings"
	"time"

	"github.com/rulego/weave/api/types"
	"github.com/viccon/sturdyc"
)

// SturdycConfig configures the sturdyc client shared by the caches of a
// sturdyc manager.
type SturdycConfig struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int `mapstructure:"capacity"`
	// NumShards is the number of shards. Must be greater than 0.
	NumShards int `mapstructure:"numShards"`
	// TTL is the time to live of entries. Must be greater than 0.
	TTL time.Duration `mapstructure:"ttl"`
	// EvictionPercentage is the share of entries evicted when the capacity
	// is reached. Must be between 1 and 100.
	EvictionPercentage int `mapstructure:"evictionPercentage"`
	// EvictionInterval is how often expired entries are removed, 0 uses the sturdyc default.
	EvictionInterval time.Duration `mapstructure:"evictionInterval"`
}

// DefaultSturdycConfig returns a config with sensible defaults.
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks the config values.
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

func (c SturdycConfig) options() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycCache is a cache stored in a sturdyc client. Caches of one manager
// share the client and are told apart by a name prefix on their keys.
type SturdycCache struct {
	name   string
	prefix string
	client *sturdyc.Client[any]
}

var _ types.Cache = (*SturdycCache)(nil)

// NewSturdycManager creates a manager whose caches live in one sturdyc client.
func NewSturdycManager(cfg SturdycConfig, names ...string) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, cfg.options()...)
	return NewManager(func(name string) types.Cache {
		return &SturdycCache{name: name, prefix: name + keySeparator, client: client}
	}, names...), nil
}

// Name implements types.Cache.
func (c *SturdycCache) Name() string {
	return c.name
}

// Get implements types.Cache.
func (c *SturdycCache) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := c.client.Get(c.prefix + key)
	return v, ok, nil
}

// Put implements types.Cache.
func (c *SturdycCache) Put(_ context.Context, key string, value any) error {
	c.client.Set(c.prefix+key, value)
	return nil
}

// Evict implements types.Cache.
func (c *SturdycCache) Evict(_ context.Context, key string) error {
	c.client.Delete(c.prefix + key)
	return nil
}

// Clear implements types.Cache.
func (c *SturdycCache) Clear(context.Context) error {
	for _, key := range c.client.ScanKeys() {
		if strings.HasPrefix(key, c.prefix) {
			c.client.Delete(key)
		}
	}
	return nil
}
