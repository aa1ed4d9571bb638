/*
 * Copyright 2023 The RuleGo Authors.
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
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rulego/weave/api/types"
)

var (
	_ types.ComponentRegistry   = (*Container)(nil)
	_ types.TargetTypePreserver = (*Container)(nil)
	_ types.ProxySkipper        = (*Container)(nil)
)

// Definition describes a component registered in a Container.
type Definition struct {
	// Name is the unique component name.
	Name string
	// Shape is the concrete type the factory produces.
	Shape reflect.Type
	// Capabilities are the interfaces callers use the component through.
	Capabilities []reflect.Type
	// Factory builds the instance.
	Factory func(ctx context.Context) (any, error)
	// Infrastructure marks components that must never be proxied.
	Infrastructure bool
	// PreserveTargetType forces the subclass wrap strategy for this component.
	PreserveTargetType bool
	// SkipProxy leaves the component unwrapped.
	SkipProxy bool
}

// PostProcessor hooks into component creation.
type PostProcessor interface {
	// PostProcessBeforeInstantiation may return a replacement, the factory is then not called.
	PostProcessBeforeInstantiation(shape reflect.Type, name string) (any, error)
	// PostProcessAfterInitialization may return a wrapper of the created instance.
	PostProcessAfterInitialization(target any, name string) (any, error)
}

var _ PostProcessor = (*AutoProxyCreator)(nil)

// Container is a registry of named singleton components. Instances are created
// on first lookup and run through the registered post processors, which is
// where an AutoProxyCreator wraps them.
//
// Container 组件容器，按名称注册单例组件，首次获取时创建并执行后置处理器。
type Container struct {
	// definitions is a map of component definitions by name.
	definitions map[string]*Definition
	// instances holds the created components.
	instances map[string]any
	// processors run in registration order.
	processors []PostProcessor
	// RWMutex is a read/write mutex lock.
	sync.RWMutex
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		definitions: make(map[string]*Definition),
		instances:   make(map[string]any),
	}
}

// Register adds a component definition.
func (r *Container) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("component name is required")
	}
	if def.Factory == nil {
		return fmt.Errorf("component %s: factory is required", def.Name)
	}
	r.Lock()
	defer r.Unlock()
	if _, ok := r.definitions[def.Name]; ok {
		return fmt.Errorf("%w. name=%s", types.ErrComponentExists, def.Name)
	}
	r.definitions[def.Name] = &def
	return nil
}

// RegisterInstance registers an already built instance. It still passes
// through the post processors on first lookup.
func (r *Container) RegisterInstance(name string, instance any, capabilities ...reflect.Type) error {
	return r.Register(Definition{
		Name:         name,
		Shape:        reflect.TypeOf(instance),
		Capabilities: capabilities,
		Factory:      func(context.Context) (any, error) { return instance, nil },
	})
}

// RegisterInfrastructure registers an instance that is never proxied.
func (r *Container) RegisterInfrastructure(name string, instance any) error {
	return r.Register(Definition{
		Name:           name,
		Shape:          reflect.TypeOf(instance),
		Factory:        func(context.Context) (any, error) { return instance, nil },
		Infrastructure: true,
	})
}

// Unregister removes a component and its instance.
func (r *Container) Unregister(name string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.definitions[name]; !ok {
		return fmt.Errorf("%w. name=%s", types.ErrComponentNotFound, name)
	}
	delete(r.definitions, name)
	delete(r.instances, name)
	return nil
}

// AddPostProcessor appends p to the post processors.
func (r *Container) AddPostProcessor(p PostProcessor) {
	r.Lock()
	defer r.Unlock()
	r.processors = append(r.processors, p)
}

// Names returns the registered names, sorted.
func (r *Container) Names() []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the component registered under name, creating it on first use.
func (r *Container) Get(ctx context.Context, name string) (any, error) {
	r.RLock()
	instance, ok := r.instances[name]
	def := r.definitions[name]
	processors := append([]PostProcessor(nil), r.processors...)
	r.RUnlock()
	if ok {
		return instance, nil
	}
	if def == nil {
		return nil, fmt.Errorf("%w. name=%s", types.ErrComponentNotFound, name)
	}

	for _, p := range processors {
		replacement, err := p.PostProcessBeforeInstantiation(def.Shape, name)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		if replacement != nil {
			instance = replacement
			break
		}
	}
	if instance == nil {
		created, err := def.Factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		instance = created
	}
	for _, p := range processors {
		wrapped, err := p.PostProcessAfterInitialization(instance, name)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		if wrapped != nil {
			instance = wrapped
		}
	}

	r.Lock()
	defer r.Unlock()
	if existing, ok := r.instances[name]; ok {
		return existing, nil
	}
	r.instances[name] = instance
	return instance, nil
}

// Instantiate runs the factory of name without post processing or caching.
func (r *Container) Instantiate(ctx context.Context, name string) (any, error) {
	r.RLock()
	def := r.definitions[name]
	r.RUnlock()
	if def == nil {
		return nil, fmt.Errorf("%w. name=%s", types.ErrComponentNotFound, name)
	}
	return def.Factory(ctx)
}

// LookupByName returns the component registered under name.
func (r *Container) LookupByName(name string) (any, error) {
	return r.Get(context.Background(), name)
}

// CapabilitiesOf returns the capabilities declared for name.
func (r *Container) CapabilitiesOf(name string, shape reflect.Type) []reflect.Type {
	r.RLock()
	defer r.RUnlock()
	if def, ok := r.definitions[name]; ok {
		return append([]reflect.Type(nil), def.Capabilities...)
	}
	return nil
}

// IsInfrastructure reports whether a definition with shape is marked infrastructure.
func (r *Container) IsInfrastructure(shape reflect.Type) bool {
	if shape == reflect.TypeOf(r) {
		return true
	}
	r.RLock()
	defer r.RUnlock()
	for _, def := range r.definitions {
		if def.Infrastructure && def.Shape == shape {
			return true
		}
	}
	return false
}

// PreserveTargetType reports whether name forces the subclass strategy.
func (r *Container) PreserveTargetType(name string, _ reflect.Type) bool {
	r.RLock()
	defer r.RUnlock()
	def, ok := r.definitions[name]
	return ok && def.PreserveTargetType
}

// ShouldSkip reports whether name is excluded from proxying.
func (r *Container) ShouldSkip(name string, _ reflect.Type) bool {
	r.RLock()
	defer r.RUnlock()
	def, ok := r.definitions[name]
	return ok && def.SkipProxy
}

// LazyInitTargetSourceCreator supplies lazy target sources for the named
// components of c, so their proxies exist before the instances do.
func LazyInitTargetSourceCreator(c *Container, names ...string) TargetSourceCreator {
	lazy := make(map[string]bool, len(names))
	for _, name := range names {
		lazy[name] = true
	}
	return TargetSourceCreatorFunc(func(shape reflect.Type, name string) types.TargetSource {
		if !lazy[name] {
			return nil
		}
		return NewLazyTargetSource(shape, func(ctx context.Context) (any, error) {
			return c.Instantiate(ctx, name)
		})
	})
}
