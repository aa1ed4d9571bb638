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
	"reflect"
	"sync"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
)

// OperationSource returns the cache operations of a method.
//
// OperationSource 缓存操作源。
type OperationSource interface {
	// Operations returns the operations of m on shape, nil when the method is not cached.
	Operations(m types.Method, shape reflect.Type) []Operation
}

// OperationLister is implemented by sources that know all their operations
// up front. The interceptor validates them at construction.
type OperationLister interface {
	AllOperations() []Operation
}

// OperationSourceFunc adapts a function to OperationSource.
type OperationSourceFunc func(m types.Method, shape reflect.Type) []Operation

// Operations implements OperationSource.
func (f OperationSourceFunc) Operations(m types.Method, shape reflect.Type) []Operation {
	return f(m, shape)
}

type nameEntry struct {
	pattern string
	ops     []Operation
}

// NameMatchSource maps method name patterns to operations. Patterns support
// the * wildcard, an exact name wins over patterns and the longest pattern
// wins among patterns.
//
// NameMatchSource 按方法名匹配缓存操作。
type NameMatchSource struct {
	mu      sync.RWMutex
	entries []nameEntry
}

// NewNameMatchSource creates an empty source.
func NewNameMatchSource() *NameMatchSource {
	return &NameMatchSource{}
}

// AddMethod registers ops for the methods matching pattern.
func (s *NameMatchSource) AddMethod(pattern string, ops ...Operation) *NameMatchSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, nameEntry{pattern: pattern, ops: ops})
	return s
}

// Operations implements OperationSource.
func (s *NameMatchSource) Operations(m types.Method, _ reflect.Type) []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *nameEntry
	for i := range s.entries {
		e := &s.entries[i]
		if e.pattern == m.Name {
			return e.ops
		}
		if pointcut.SimpleMatch(e.pattern, m.Name) && (best == nil || len(best.pattern) <= len(e.pattern)) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.ops
}

// AllOperations implements OperationLister.
func (s *NameMatchSource) AllOperations() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ops []Operation
	for _, e := range s.entries {
		ops = append(ops, e.ops...)
	}
	return ops
}

// CompositeSource concatenates the operations of several sources.
type CompositeSource []OperationSource

// Operations implements OperationSource.
func (c CompositeSource) Operations(m types.Method, shape reflect.Type) []Operation {
	var ops []Operation
	for _, s := range c {
		ops = append(ops, s.Operations(m, shape)...)
	}
	return ops
}

// AllOperations implements OperationLister for the listing members.
func (c CompositeSource) AllOperations() []Operation {
	var ops []Operation
	for _, s := range c {
		if l, ok := s.(OperationLister); ok {
			ops = append(ops, l.AllOperations()...)
		}
	}
	return ops
}
