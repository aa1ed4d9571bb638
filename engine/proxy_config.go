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
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
)

// ProxyOption configures a ProxyConfig.
type ProxyOption func(*ProxyConfig)

// WithInterfaces declares the capability interfaces the proxy exposes.
func WithInterfaces(interfaces ...reflect.Type) ProxyOption {
	return func(c *ProxyConfig) {
		c.interfaces = append(c.interfaces, interfaces...)
	}
}

// WithTargetType forces the subclass wrap strategy.
func WithTargetType(proxyTargetType bool) ProxyOption {
	return func(c *ProxyConfig) {
		c.proxyTargetType = proxyTargetType
	}
}

// WithExposedProxy makes the running proxy available through CurrentProxy.
func WithExposedProxy(expose bool) ProxyOption {
	return func(c *ProxyConfig) {
		c.exposeProxy = expose
	}
}

// WithAdapters sets the advisor adapter registry.
func WithAdapters(adapters *AdapterRegistry) ProxyOption {
	return func(c *ProxyConfig) {
		c.adapters = adapters
	}
}

// WithCapabilities sets the typed capability adapters used by As.
func WithCapabilities(capabilities *CapabilityAdapters) ProxyOption {
	return func(c *ProxyConfig) {
		c.capabilities = capabilities
	}
}

// WithProxyLogger sets the logger.
func WithProxyLogger(logger types.Logger) ProxyOption {
	return func(c *ProxyConfig) {
		c.logger = logger
	}
}

// ProxyConfig is the mutable description of a proxy: its target source,
// capability interfaces and ordered advisors. Interceptor chains are computed
// per method on first use and cached until the advisors change.
//
// ProxyConfig 代理配置：目标源、能力接口以及有序的通知器列表。
type ProxyConfig struct {
	targetSource    types.TargetSource
	interfaces      []reflect.Type
	advisors        []types.Advisor
	proxyTargetType bool
	exposeProxy     bool
	frozen          bool
	adapters        *AdapterRegistry
	capabilities    *CapabilityAdapters
	logger          types.Logger
	chains          *xsync.MapOf[chainKey, []types.Interceptor]
	version         atomic.Int64
	sync.RWMutex
}

type chainKey struct {
	declaring reflect.Type
	name      string
	shape     reflect.Type
}

// NewProxyConfig creates a configuration for targets supplied by ts.
func NewProxyConfig(ts types.TargetSource, opts ...ProxyOption) *ProxyConfig {
	c := &ProxyConfig{
		targetSource: ts,
		chains:       xsync.NewMapOf[chainKey, []types.Interceptor](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.adapters == nil {
		c.adapters = DefaultAdapterRegistry
	}
	if c.capabilities == nil {
		c.capabilities = DefaultCapabilityAdapters
	}
	if c.logger == nil {
		c.logger = types.NopLogger()
	}
	return c
}

// TargetSource returns the target source.
func (c *ProxyConfig) TargetSource() types.TargetSource {
	return c.targetSource
}

// TargetType returns the shape of the targets.
func (c *ProxyConfig) TargetType() reflect.Type {
	if c.targetSource == nil {
		return nil
	}
	return c.targetSource.TargetType()
}

// IsProxyTargetType reports whether the subclass strategy is forced.
func (c *ProxyConfig) IsProxyTargetType() bool {
	return c.proxyTargetType
}

// IsExposeProxy reports whether the proxy is exposed through the call context.
func (c *ProxyConfig) IsExposeProxy() bool {
	return c.exposeProxy
}

// Freeze rejects any further advisor or interface change.
func (c *ProxyConfig) Freeze() {
	c.Lock()
	defer c.Unlock()
	c.frozen = true
}

// IsFrozen reports whether the configuration is frozen.
func (c *ProxyConfig) IsFrozen() bool {
	c.RLock()
	defer c.RUnlock()
	return c.frozen
}

// Interfaces returns the declared capability interfaces followed by the
// interfaces introduced by introduction advisors.
func (c *ProxyConfig) Interfaces() []reflect.Type {
	c.RLock()
	defer c.RUnlock()
	result := append([]reflect.Type(nil), c.interfaces...)
	return appendUnique(result, c.introducedInterfacesLocked()...)
}

// AddInterface declares another capability interface.
func (c *ProxyConfig) AddInterface(iface reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return fmt.Errorf("%v is not an interface", iface)
	}
	c.Lock()
	defer c.Unlock()
	if c.frozen {
		return types.ErrConfigFrozen
	}
	c.interfaces = appendUnique(c.interfaces, iface)
	c.changedLocked()
	return nil
}

// Advisors returns a copy of the advisor list.
func (c *ProxyConfig) Advisors() []types.Advisor {
	c.RLock()
	defer c.RUnlock()
	return append([]types.Advisor(nil), c.advisors...)
}

// AddAdvisor appends advisors in the given order.
func (c *ProxyConfig) AddAdvisor(advisors ...types.Advisor) error {
	for _, advisor := range advisors {
		if ia, ok := advisor.(types.IntroductionAdvisor); ok {
			if err := validateIntroduction(ia); err != nil {
				return err
			}
		} else if _, err := c.adapters.Interceptors(advisor); err != nil {
			return err
		}
	}
	c.Lock()
	defer c.Unlock()
	if c.frozen {
		return types.ErrConfigFrozen
	}
	c.advisors = append(c.advisors, advisors...)
	c.changedLocked()
	return nil
}

// AddAdvice wraps each advice in an advisor that applies everywhere and appends it.
func (c *ProxyConfig) AddAdvice(advice ...any) error {
	advisors := make([]types.Advisor, 0, len(advice))
	for _, a := range advice {
		advisor, err := c.adapters.Wrap(a)
		if err != nil {
			return err
		}
		advisors = append(advisors, advisor)
	}
	return c.AddAdvisor(advisors...)
}

// RemoveAdvisor removes advisor and reports whether it was present.
func (c *ProxyConfig) RemoveAdvisor(advisor types.Advisor) (bool, error) {
	c.Lock()
	defer c.Unlock()
	if c.frozen {
		return false, types.ErrConfigFrozen
	}
	for i, a := range c.advisors {
		if a == advisor {
			c.advisors = append(c.advisors[:i:i], c.advisors[i+1:]...)
			c.changedLocked()
			return true, nil
		}
	}
	return false, nil
}

// GetProxy builds a proxy over this configuration.
func (c *ProxyConfig) GetProxy() (*Proxy, error) {
	strategy, err := c.selectStrategy()
	if err != nil {
		return nil, err
	}
	p := newProxy(c, strategy)
	c.logger.Printf("created proxy %s", p)
	return p, nil
}

func (c *ProxyConfig) selectStrategy() (WrapStrategy, error) {
	c.RLock()
	defer c.RUnlock()
	shape := c.TargetType()
	if c.proxyTargetType || len(c.interfaces) == 0 {
		if shape == nil {
			return WrapStrategy{}, types.ErrNoTargetType
		}
		if shape.Kind() == reflect.Interface {
			return Capabilities(shape), nil
		}
		return Subclass(shape), nil
	}
	return Capabilities(c.interfaces...), nil
}

// exposedMethods resolves the operations a proxy with strategy exposes. On
// name clashes the first declaration wins, target methods before introductions.
func (c *ProxyConfig) exposedMethods(strategy WrapStrategy) map[string]types.Method {
	c.RLock()
	defer c.RUnlock()
	exposed := make(map[string]types.Method)
	add := func(t reflect.Type) {
		for _, m := range types.MethodsOf(t) {
			if _, dup := exposed[m.Name]; !dup {
				exposed[m.Name] = m
			}
		}
	}
	switch strategy.Kind {
	case SubclassStrategy:
		add(strategy.Concrete)
	default:
		for _, iface := range appendUnique(append([]reflect.Type(nil), strategy.Capabilities...), c.interfaces...) {
			add(iface)
		}
	}
	for _, iface := range c.introducedInterfacesLocked() {
		add(iface)
	}
	return exposed
}

func (c *ProxyConfig) introducedInterfacesLocked() []reflect.Type {
	var introduced []reflect.Type
	for _, advisor := range c.advisors {
		if ia, ok := advisor.(types.IntroductionAdvisor); ok {
			introduced = appendUnique(introduced, ia.Interfaces()...)
		}
	}
	return introduced
}

func (c *ProxyConfig) changedLocked() {
	c.chains.Clear()
	c.version.Add(1)
}

// interceptorsFor returns the cached interceptor chain for m on shape.
func (c *ProxyConfig) interceptorsFor(m types.Method, shape reflect.Type) ([]types.Interceptor, error) {
	key := chainKey{declaring: m.DeclaringType, name: m.Name, shape: shape}
	if chain, ok := c.chains.Load(key); ok {
		return chain, nil
	}
	chain, err := c.buildChain(m, shape)
	if err != nil {
		return nil, err
	}
	c.chains.Store(key, chain)
	return chain, nil
}

func (c *ProxyConfig) buildChain(m types.Method, shape reflect.Type) ([]types.Interceptor, error) {
	advisors := c.Advisors()
	hasIntroductions := false
	for _, advisor := range advisors {
		if ia, ok := advisor.(types.IntroductionAdvisor); ok && ia.ClassFilter().Matches(shape) {
			hasIntroductions = true
			break
		}
	}
	var chain []types.Interceptor
	for _, advisor := range advisors {
		switch a := advisor.(type) {
		case types.IntroductionAdvisor:
			if !a.ClassFilter().Matches(shape) {
				continue
			}
			interceptors, err := c.adapters.Interceptors(a)
			if err != nil {
				return nil, err
			}
			for _, interceptor := range interceptors {
				chain = append(chain, &introductionGuard{interfaces: a.Interfaces(), interceptor: interceptor})
			}
		case types.PointcutAdvisor:
			pc := a.Pointcut()
			if !pc.ClassFilter().Matches(shape) {
				continue
			}
			mm := pc.MethodMatcher()
			if !pointcut.MatchesMethod(mm, m, shape, hasIntroductions) {
				continue
			}
			interceptors, err := c.adapters.Interceptors(a)
			if err != nil {
				return nil, err
			}
			for _, interceptor := range interceptors {
				if mm.IsRuntime() {
					interceptor = &dynamicInterceptor{matcher: mm, interceptor: interceptor}
				}
				chain = append(chain, interceptor)
			}
		default:
			interceptors, err := c.adapters.Interceptors(a)
			if err != nil {
				return nil, err
			}
			chain = append(chain, interceptors...)
		}
	}
	return chain, nil
}

func (c *ProxyConfig) String() string {
	c.RLock()
	defer c.RUnlock()
	names := make([]string, 0, len(c.interfaces))
	for _, iface := range c.interfaces {
		names = append(names, types.TypeName(iface))
	}
	return fmt.Sprintf("ProxyConfig[target %s, interfaces [%s], %d advisors, frozen %t]",
		types.TypeName(c.TargetType()), strings.Join(names, ", "), len(c.advisors), c.frozen)
}

// dynamicInterceptor re-checks a runtime method matcher on every call and
// skips its interceptor when the arguments do not match.
type dynamicInterceptor struct {
	matcher     types.MethodMatcher
	interceptor types.Interceptor
}

func (d *dynamicInterceptor) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	if d.matcher.MatchesArgs(inv.Method(), inv.TargetType(), inv.Arguments()) {
		return d.interceptor.Invoke(ctx, inv)
	}
	return inv.Proceed(ctx)
}

// introductionGuard only lets an introduction interceptor see operations
// declared by the interfaces it introduces.
type introductionGuard struct {
	interfaces  []reflect.Type
	interceptor types.Interceptor
}

func (g *introductionGuard) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	declaring := inv.Method().DeclaringType
	for _, iface := range g.interfaces {
		if declaring == iface || (declaring != nil && declaring.Kind() == reflect.Interface && iface.Implements(declaring)) {
			return g.interceptor.Invoke(ctx, inv)
		}
	}
	return inv.Proceed(ctx)
}

func appendUnique(list []reflect.Type, items ...reflect.Type) []reflect.Type {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
