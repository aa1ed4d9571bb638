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
	"sync"

	"github.com/rulego/weave/api/types"
)

var (
	errNotFound = errors.New("order not found")
	errStore    = errors.New("store unavailable")
)

type order struct {
	ID   int
	Name string
}

type orderService struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func newOrderService() *orderService {
	return &orderService{calls: make(map[string]int)}
}

func (s *orderService) called(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
}

func (s *orderService) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *orderService) Find(ctx context.Context, id int) (*order, error) {
	s.called("Find")
	if id == 0 {
		return nil, errNotFound
	}
	return &order{ID: id, Name: fmt.Sprintf("order-%d", id)}, nil
}

func (s *orderService) Update(ctx context.Context, o *order) (*order, error) {
	s.called("Update")
	return o, nil
}

func (s *orderService) Delete(ctx context.Context, id int) error {
	s.called("Delete")
	if s.fail {
		return errNotFound
	}
	return nil
}

func (s *orderService) Reload(ctx context.Context) error {
	s.called("Reload")
	return errNotFound
}

func (s *orderService) Count() int {
	s.called("Count")
	return s.count("Count")
}

func (s *orderService) ArgNames(method string) []string {
	switch method {
	case "Find", "Delete":
		return []string{"id"}
	case "Update":
		return []string{"order"}
	}
	return nil
}

// failingCache fails every access.
type failingCache struct{}

func (failingCache) Name() string { return "failing" }

func (failingCache) Get(context.Context, string) (any, bool, error) { return nil, false, errStore }

func (failingCache) Put(context.Context, string, any) error { return errStore }

func (failingCache) Evict(context.Context, string) error { return errStore }

func (failingCache) Clear(context.Context) error { return errStore }

type failingManager struct{}

func (failingManager) GetCache(string) (types.Cache, error) { return failingCache{}, nil }

func (failingManager) CacheNames() []string { return []string{"failing"} }
