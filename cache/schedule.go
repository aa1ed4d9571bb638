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
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rulego/weave/api/types"
)

// EvictionScheduler clears caches on cron schedules. Specs accept a leading
// seconds field, e.g. "0 */5 * * * *", and descriptors such as "@every 1m".
//
// EvictionScheduler 定时清除缓存。
type EvictionScheduler struct {
	cron    *cron.Cron
	manager types.CacheManager
	logger  types.Logger
}

// NewEvictionScheduler creates a stopped scheduler clearing caches of manager.
func NewEvictionScheduler(manager types.CacheManager, logger types.Logger) *EvictionScheduler {
	if logger == nil {
		logger = types.NopLogger()
	}
	return &EvictionScheduler{cron: cron.New(cron.WithSeconds()), manager: manager, logger: logger}
}

// Schedule clears cacheNames, or every cache of the manager when none are
// given, each time spec fires.
func (s *EvictionScheduler) Schedule(spec string, cacheNames ...string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		if err := s.EvictNow(context.Background(), cacheNames...); err != nil {
			s.logger.Printf("scheduled cache eviction %s failed: %v", spec, err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid eviction schedule %q: %w", spec, err)
	}
	return id, nil
}

// Remove cancels a schedule.
func (s *EvictionScheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Entries returns the number of schedules.
func (s *EvictionScheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler in its own goroutine.
func (s *EvictionScheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler. The returned context is done once running
// evictions have finished.
func (s *EvictionScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// EvictNow clears cacheNames, or every cache of the manager.
func (s *EvictionScheduler) EvictNow(ctx context.Context, cacheNames ...string) error {
	if len(cacheNames) == 0 {
		cacheNames = s.manager.CacheNames()
	}
	var errs []error
	for _, name := range cacheNames {
		c, err := s.manager.GetCache(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrCacheNotFound, name, err))
			continue
		}
		if err := c.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
