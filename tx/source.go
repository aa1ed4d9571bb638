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

package tx

import (
	"reflect"
	"sort"
	"sync"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
)

// AttributeSource returns the transaction attribute of a method, nil when the
// method is not transactional.
//
// AttributeSource 事务属性源。
type AttributeSource interface {
	Attribute(m types.Method, shape reflect.Type) *Attribute
}

// AttributeLister is implemented by sources that can enumerate their attributes,
// which lets the interceptor validate qualifiers up front.
type AttributeLister interface {
	Attributes() []*Attribute
}

// AttributeSourceFunc adapts a function to an AttributeSource.
type AttributeSourceFunc func(m types.Method, shape reflect.Type) *Attribute

func (f AttributeSourceFunc) Attribute(m types.Method, shape reflect.Type) *Attribute {
	return f(m, shape)
}

// MatchAlways returns a source giving every method attr.
func MatchAlways(attr *Attribute) AttributeSource {
	return &matchAlways{attr: attr}
}

type matchAlways struct {
	attr *Attribute
}

func (s *matchAlways) Attribute(types.Method, reflect.Type) *Attribute { return s.attr }

func (s *matchAlways) Attributes() []*Attribute { return []*Attribute{s.attr} }

type nameEntry struct {
	pattern string
	attr    *Attribute
}

// NameMatchSource maps method name patterns to attributes, e.g. "Place*" or
// "*". An exact name beats any pattern, otherwise the longest matching pattern wins.
//
// NameMatchSource 按方法名匹配事务属性。
type NameMatchSource struct {
	mu      sync.RWMutex
	entries []nameEntry
}

// NewNameMatchSource creates an empty source.
func NewNameMatchSource() *NameMatchSource {
	return &NameMatchSource{}
}

// AddMethod maps pattern to attr.
func (s *NameMatchSource) AddMethod(pattern string, attr *Attribute) *NameMatchSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, nameEntry{pattern: pattern, attr: attr})
	return s
}

// SetProperties maps each pattern to an attribute in the textual form
// accepted by ParseAttribute. Patterns are added in sorted order.
func (s *NameMatchSource) SetProperties(props map[string]string, errs map[string]error) error {
	patterns := make([]string, 0, len(props))
	for pattern := range props {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		attr, err := ParseAttribute(props[pattern], errs)
		if err != nil {
			return err
		}
		s.AddMethod(pattern, attr)
	}
	return nil
}

// Attribute implements AttributeSource.
func (s *NameMatchSource) Attribute(m types.Method, _ reflect.Type) *Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bestNameMatch(s.entries, m.Name)
}

// Attributes implements AttributeLister.
func (s *NameMatchSource) Attributes() []*Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs := make([]*Attribute, 0, len(s.entries))
	for _, e := range s.entries {
		attrs = append(attrs, e.attr)
	}
	return attrs
}

func bestNameMatch(entries []nameEntry, name string) *Attribute {
	var best *nameEntry
	for i := range entries {
		e := &entries[i]
		if e.pattern == name {
			return e.attr
		}
		if pointcut.SimpleMatch(e.pattern, name) && (best == nil || len(best.pattern) <= len(e.pattern)) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.attr
}

type typeEntry struct {
	t       reflect.Type
	filter  types.ClassFilter
	entries []nameEntry
}

// MethodMapSource maps methods of specific types to attributes. A type may be
// an interface, matching every shape that implements it, or a concrete type.
//
// MethodMapSource 按类型和方法名匹配事务属性。
type MethodMapSource struct {
	mu     sync.RWMutex
	byType []*typeEntry
}

// NewMethodMapSource creates an empty source.
func NewMethodMapSource() *MethodMapSource {
	return &MethodMapSource{}
}

// AddMethod maps methods of t matching pattern to attr.
func (s *MethodMapSource) AddMethod(t reflect.Type, pattern string, attr *Attribute) *MethodMapSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, te := range s.byType {
		if te.t == t {
			te.entries = append(te.entries, nameEntry{pattern: pattern, attr: attr})
			return s
		}
	}
	s.byType = append(s.byType, &typeEntry{
		t:       t,
		filter:  pointcut.TypeFilter(t),
		entries: []nameEntry{{pattern: pattern, attr: attr}},
	})
	return s
}

// Attribute implements AttributeSource. The first registered type matching
// shape, or declaring the method, decides.
func (s *MethodMapSource) Attribute(m types.Method, shape reflect.Type) *Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, te := range s.byType {
		if te.t != m.DeclaringType && (shape == nil || !te.filter.Matches(shape)) {
			continue
		}
		if attr := bestNameMatch(te.entries, m.Name); attr != nil {
			return attr
		}
	}
	return nil
}

// Attributes implements AttributeLister.
func (s *MethodMapSource) Attributes() []*Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attrs []*Attribute
	for _, te := range s.byType {
		for _, e := range te.entries {
			attrs = append(attrs, e.attr)
		}
	}
	return attrs
}

// CompositeSource asks each source in turn, the first attribute found wins.
type CompositeSource []AttributeSource

// Attribute implements AttributeSource.
func (c CompositeSource) Attribute(m types.Method, shape reflect.Type) *Attribute {
	for _, source := range c {
		if attr := source.Attribute(m, shape); attr != nil {
			return attr
		}
	}
	return nil
}

// Attributes implements AttributeLister.
func (c CompositeSource) Attributes() []*Attribute {
	var attrs []*Attribute
	for _, source := range c {
		if lister, ok := source.(AttributeLister); ok {
			attrs = append(attrs, lister.Attributes()...)
		}
	}
	return attrs
}
