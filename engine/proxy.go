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
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/weave/api/types"
)

// StrategyKind tells how a proxy exposes its target.
type StrategyKind int

const (
	// CapabilityStrategy exposes only the declared capability interfaces.
	CapabilityStrategy StrategyKind = iota
	// SubclassStrategy exposes the full method set of the concrete shape.
	SubclassStrategy
)

func (k StrategyKind) String() string {
	if k == SubclassStrategy {
		return "subclass"
	}
	return "capabilities"
}

// WrapStrategy is the chosen way of wrapping a target: either a set of
// capability interfaces or the concrete shape.
type WrapStrategy struct {
	Kind         StrategyKind
	Capabilities []reflect.Type
	Concrete     reflect.Type
}

// Capabilities selects the capability strategy.
func Capabilities(interfaces ...reflect.Type) WrapStrategy {
	return WrapStrategy{Kind: CapabilityStrategy, Capabilities: interfaces}
}

// Subclass selects the subclass strategy for concrete.
func Subclass(concrete reflect.Type) WrapStrategy {
	return WrapStrategy{Kind: SubclassStrategy, Concrete: concrete}
}

func (s WrapStrategy) String() string {
	if s.Kind == SubclassStrategy {
		return "subclass(" + types.TypeName(s.Concrete) + ")"
	}
	names := make([]string, 0, len(s.Capabilities))
	for _, iface := range s.Capabilities {
		names = append(names, types.TypeName(iface))
	}
	return "capabilities(" + strings.Join(names, ", ") + ")"
}

// Proxy stands in for a target and routes every exposed operation through the
// interceptor chain computed by its ProxyConfig. Callers invoke operations by
// name with Invoke, or through a typed adapter obtained with As.
//
// Proxy 代理对象，所有暴露的操作都会经过拦截器链。
type Proxy struct {
	id       string
	config   *ProxyConfig
	strategy WrapStrategy

	mu      sync.RWMutex
	exposed map[string]types.Method
	version int64
}

func newProxy(config *ProxyConfig, strategy WrapStrategy) *Proxy {
	p := &Proxy{
		id:       uuid.Must(uuid.NewV4()).String(),
		config:   config,
		strategy: strategy,
	}
	p.refresh()
	return p
}

// ID returns the proxy id.
func (p *Proxy) ID() string {
	return p.id
}

// Advised returns the configuration behind the proxy.
func (p *Proxy) Advised() *ProxyConfig {
	return p.config
}

// Strategy returns the wrap strategy chosen at creation.
func (p *Proxy) Strategy() WrapStrategy {
	return p.strategy
}

// TargetType returns the shape of the wrapped target.
func (p *Proxy) TargetType() reflect.Type {
	return p.config.TargetType()
}

// Invoke runs method through the interceptor chain. ctx is handed to
// interceptors and injected into the target method when its first parameter
// is a context.Context; args are the remaining arguments.
func (p *Proxy) Invoke(ctx context.Context, method string, args ...any) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	m, ok := p.lookup(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", types.ErrMethodNotExposed, method, p)
	}
	ts := p.config.TargetSource()
	target, err := ts.GetTarget(ctx)
	if err != nil {
		return nil, err
	}
	if !ts.IsStatic() {
		defer func() {
			if err := ts.ReleaseTarget(ctx, target); err != nil {
				p.config.logger.Printf("release target of %s: %v", p, err)
			}
		}()
	}
	shape := reflect.TypeOf(target)
	if shape == nil {
		shape = ts.TargetType()
	}
	chain, err := p.config.interceptorsFor(m, shape)
	if err != nil {
		return nil, err
	}
	if p.config.IsExposeProxy() {
		ctx = WithCurrentProxy(ctx, p)
	}
	return NewInvocation(p, target, m, args, chain).Proceed(ctx)
}

// Methods returns the exposed operations sorted by name.
func (p *Proxy) Methods() []types.Method {
	p.refresh()
	p.mu.RLock()
	defer p.mu.RUnlock()
	methods := make([]types.Method, 0, len(p.exposed))
	for _, m := range p.exposed {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	return methods
}

// Exposes reports whether the proxy exposes method.
func (p *Proxy) Exposes(method string) bool {
	_, ok := p.lookup(method)
	return ok
}

// Implements reports whether the proxy can stand in for iface.
func (p *Proxy) Implements(iface reflect.Type) bool {
	if iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	if p.strategy.Kind == SubclassStrategy && p.strategy.Concrete.Implements(iface) {
		return true
	}
	for _, capability := range p.config.Interfaces() {
		if capability == iface || capability.Implements(iface) {
			return true
		}
	}
	for _, capability := range p.strategy.Capabilities {
		if capability == iface || capability.Implements(iface) {
			return true
		}
	}
	return false
}

func (p *Proxy) String() string {
	return fmt.Sprintf("Proxy[%s via %s]", types.TypeName(p.config.TargetType()), p.strategy)
}

func (p *Proxy) lookup(method string) (types.Method, bool) {
	p.refresh()
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.exposed[method]
	return m, ok
}

// refresh recomputes the exposed set after the configuration changed.
func (p *Proxy) refresh() {
	version := p.config.version.Load()
	p.mu.RLock()
	current := p.exposed != nil && p.version == version
	p.mu.RUnlock()
	if current {
		return
	}
	exposed := p.config.exposedMethods(p.strategy)
	p.mu.Lock()
	p.exposed = exposed
	p.version = version
	p.mu.Unlock()
}
