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

package engine

import (
	"context"
	"reflect"
	"sync"

	"github.com/rulego/weave/api/types"
)

var (
	_ types.TargetSource = (*SingletonTargetSource)(nil)
	_ types.TargetSource = (*LazyTargetSource)(nil)
	_ types.TargetSource = (*PrototypeTargetSource)(nil)
)

// TargetSourceCreator supplies a custom TargetSource for a component before it
// is instantiated. Returning nil declines.
type TargetSourceCreator interface {
	TargetSource(shape reflect.Type, name string) types.TargetSource
}

// TargetSourceCreatorFunc adapts a function to TargetSourceCreator.
type TargetSourceCreatorFunc func(shape reflect.Type, name string) types.TargetSource

func (f TargetSourceCreatorFunc) TargetSource(shape reflect.Type, name string) types.TargetSource {
	return f(shape, name)
}

// SingletonTargetSource always returns the same instance.
type SingletonTargetSource struct {
	target any
}

// NewSingletonTargetSource wraps target.
func NewSingletonTargetSource(target any) *SingletonTargetSource {
	return &SingletonTargetSource{target: target}
}

func (s *SingletonTargetSource) TargetType() reflect.Type { return reflect.TypeOf(s.target) }

func (s *SingletonTargetSource) IsStatic() bool { return true }

func (s *SingletonTargetSource) GetTarget(context.Context) (any, error) { return s.target, nil }

func (s *SingletonTargetSource) ReleaseTarget(context.Context, any) error { return nil }

// LazyTargetSource creates its instance on the first call. A failed creation
// is retried on the next call.
type LazyTargetSource struct {
	shape   reflect.Type
	factory func(ctx context.Context) (any, error)
	mu      sync.Mutex
	target  any
}

// NewLazyTargetSource creates a lazy source for instances of shape.
func NewLazyTargetSource(shape reflect.Type, factory func(ctx context.Context) (any, error)) *LazyTargetSource {
	return &LazyTargetSource{shape: shape, factory: factory}
}

func (s *LazyTargetSource) TargetType() reflect.Type { return s.shape }

func (s *LazyTargetSource) IsStatic() bool { return false }

func (s *LazyTargetSource) GetTarget(ctx context.Context) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		return s.target, nil
	}
	target, err := s.factory(ctx)
	if err != nil {
		return nil, err
	}
	s.target = target
	return target, nil
}

func (s *LazyTargetSource) ReleaseTarget(context.Context, any) error { return nil }

// IsInitialized reports whether the instance has been created.
func (s *LazyTargetSource) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target != nil
}

// PrototypeTargetSource creates a fresh instance for every call and passes it
// to release afterwards, when set.
type PrototypeTargetSource struct {
	shape   reflect.Type
	factory func(ctx context.Context) (any, error)
	release func(target any) error
}

// NewPrototypeTargetSource creates a per-call source for instances of shape.
func NewPrototypeTargetSource(shape reflect.Type, factory func(ctx context.Context) (any, error), release func(target any) error) *PrototypeTargetSource {
	return &PrototypeTargetSource{shape: shape, factory: factory, release: release}
}

func (s *PrototypeTargetSource) TargetType() reflect.Type { return s.shape }

func (s *PrototypeTargetSource) IsStatic() bool { return false }

func (s *PrototypeTargetSource) GetTarget(ctx context.Context) (any, error) { return s.factory(ctx) }

func (s *PrototypeTargetSource) ReleaseTarget(_ context.Context, target any) error {
	if s.release == nil {
		return nil
	}
	return s.release(target)
}
