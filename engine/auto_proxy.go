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
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
)

var infrastructureTypes = []reflect.Type{
	types.TypeOf[types.Advisor](),
	types.TypeOf[types.Interceptor](),
	types.TypeOf[types.BeforeAdvice](),
	types.TypeOf[types.AfterReturningAdvice](),
	types.TypeOf[types.ThrowsAdvice](),
	types.TypeOf[types.Pointcut](),
	types.TypeOf[types.ClassFilter](),
	types.TypeOf[types.MethodMatcher](),
	types.TypeOf[types.TargetSource](),
	types.TypeOf[types.ComponentRegistry](),
	reflect.TypeOf((*Proxy)(nil)),
	reflect.TypeOf((*AutoProxyCreator)(nil)),
}

// CreatorOption configures an AutoProxyCreator.
type CreatorOption func(*AutoProxyCreator)

// WithAdvisors registers advisors at construction.
func WithAdvisors(advisors ...types.Advisor) CreatorOption {
	return func(c *AutoProxyCreator) {
		c.pending = append(c.pending, advisors...)
	}
}

// WithTargetSourceCreators sets the creators consulted before instantiation.
func WithTargetSourceCreators(creators ...TargetSourceCreator) CreatorOption {
	return func(c *AutoProxyCreator) {
		c.creators = append(c.creators, creators...)
	}
}

// WithAdapterRegistry sets the advisor adapter registry used by created proxies.
func WithAdapterRegistry(adapters *AdapterRegistry) CreatorOption {
	return func(c *AutoProxyCreator) {
		c.adapters = adapters
	}
}

// WithCapabilityAdapters sets the typed capability adapters of created proxies.
func WithCapabilityAdapters(capabilities *CapabilityAdapters) CreatorOption {
	return func(c *AutoProxyCreator) {
		c.capabilities = capabilities
	}
}

type beanKey struct {
	shape reflect.Type
	name  string
}

// AutoProxyCreator decides, once per component identity, whether the
// component needs a proxy and builds it. Decisions are memoized: a component
// is wrapped at most once, and components that need no proxy are remembered
// as such.
//
// AutoProxyCreator 自动代理创建器，根据已注册的通知器为组件创建代理，每个组件最多被代理一次。
type AutoProxyCreator struct {
	config       types.Config
	registry     types.ComponentRegistry
	adapters     *AdapterRegistry
	capabilities *CapabilityAdapters
	creators     []TargetSourceCreator
	logger       types.Logger

	advisorsMu sync.RWMutex
	advisors   []types.Advisor
	pending    []types.Advisor
	common     []types.Advisor

	// wrapMu serializes the population of the memo tables
	wrapMu        sync.Mutex
	advised       *xsync.MapOf[beanKey, bool]
	proxies       *xsync.MapOf[beanKey, *Proxy]
	targetSourced *xsync.MapOf[string, *Proxy]
}

// NewAutoProxyCreator creates a creator over registry. Common interceptors
// named in config are looked up immediately and an unknown name is an error.
func NewAutoProxyCreator(registry types.ComponentRegistry, config types.Config, opts ...CreatorOption) (*AutoProxyCreator, error) {
	c := &AutoProxyCreator{
		config:        config,
		registry:      registry,
		logger:        types.NewLogger(config.Logger),
		advised:       xsync.NewMapOf[beanKey, bool](),
		proxies:       xsync.NewMapOf[beanKey, *Proxy](),
		targetSourced: xsync.NewMapOf[string, *Proxy](),
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
	if err := c.AddAdvisor(c.pending...); err != nil {
		return nil, err
	}
	c.pending = nil
	for _, name := range config.CommonInterceptors {
		if registry == nil {
			return nil, fmt.Errorf("common interceptor %q: no component registry", name)
		}
		component, err := registry.LookupByName(name)
		if err != nil {
			return nil, fmt.Errorf("common interceptor %q: %w", name, err)
		}
		advisor, err := c.adapters.Wrap(component)
		if err != nil {
			return nil, fmt.Errorf("common interceptor %q: %w", name, err)
		}
		c.common = append(c.common, advisor)
	}
	return c, nil
}

// AddAdvisor registers candidate advisors. They are kept sorted by Order.
// Components already decided are not reconsidered.
func (c *AutoProxyCreator) AddAdvisor(advisors ...types.Advisor) error {
	for _, advisor := range advisors {
		if ia, ok := advisor.(types.IntroductionAdvisor); ok {
			if err := validateIntroduction(ia); err != nil {
				return err
			}
		} else if _, err := c.adapters.Interceptors(advisor); err != nil {
			return err
		}
	}
	c.advisorsMu.Lock()
	defer c.advisorsMu.Unlock()
	c.advisors = append(c.advisors, advisors...)
	SortAdvisors(c.advisors)
	return nil
}

// Advisors returns the registered advisors in order.
func (c *AutoProxyCreator) Advisors() []types.Advisor {
	c.advisorsMu.RLock()
	defer c.advisorsMu.RUnlock()
	return append([]types.Advisor(nil), c.advisors...)
}

// CandidateAdvisors returns the advisors eligible for consideration, honoring
// the advisor name prefix.
func (c *AutoProxyCreator) CandidateAdvisors() []types.Advisor {
	all := c.Advisors()
	prefix := c.config.AdvisorNamePrefix
	if prefix == "" {
		return all
	}
	var candidates []types.Advisor
	for _, advisor := range all {
		if named, ok := advisor.(types.Named); ok && strings.HasPrefix(named.Name(), prefix) {
			candidates = append(candidates, advisor)
		}
	}
	return candidates
}

// PostProcessBeforeInstantiation gives TargetSourceCreators the chance to
// supply a custom target source for the component. When one does, the proxy
// is built right away and returned in place of the instance.
func (c *AutoProxyCreator) PostProcessBeforeInstantiation(shape reflect.Type, name string) (any, error) {
	if shape == nil || len(c.creators) == 0 {
		return nil, nil
	}
	key := beanKey{shape: shape, name: name}
	if name != "" {
		if p, ok := c.targetSourced.Load(name); ok {
			return p, nil
		}
	}
	if _, decided := c.advised.Load(key); decided {
		return nil, nil
	}
	c.wrapMu.Lock()
	defer c.wrapMu.Unlock()
	if c.isInfrastructure(shape) || c.shouldSkip(name, shape) {
		c.advised.Store(key, false)
		return nil, nil
	}
	var ts types.TargetSource
	for _, creator := range c.creators {
		if ts = creator.TargetSource(shape, name); ts != nil {
			break
		}
	}
	if ts == nil {
		return nil, nil
	}
	capabilities := c.capabilitiesOf(name, shape)
	advisors := ResolveApplicableAdvisors(c.CandidateAdvisors(), shape, capabilities...)
	if len(advisors) == 0 {
		return nil, nil
	}
	p, err := c.createProxy(shape, name, advisors, ts, capabilities)
	if err != nil {
		return nil, err
	}
	if name != "" {
		c.targetSourced.Store(name, p)
	}
	c.proxies.Store(key, p)
	c.advised.Store(key, true)
	return p, nil
}

// PostProcessAfterInitialization wraps a freshly built component when needed.
// Components already proxied before instantiation are returned unchanged.
func (c *AutoProxyCreator) PostProcessAfterInitialization(target any, name string) (any, error) {
	if target == nil {
		return nil, nil
	}
	if name != "" {
		if p, ok := c.targetSourced.Load(name); ok && any(p) == target {
			return target, nil
		}
	}
	return c.WrapIfNecessary(target, name)
}

// WrapIfNecessary returns a proxy for target if any candidate advisor applies
// to it, otherwise target itself. The decision and the proxy are memoized per
// identity, a shape plus a name, so concurrent and repeated calls for the same
// component yield the same result.
//
// WrapIfNecessary 如有适用的通知器则为目标创建代理，否则返回目标本身。
func (c *AutoProxyCreator) WrapIfNecessary(target any, name string) (any, error) {
	if target == nil {
		return nil, nil
	}
	if _, ok := target.(*Proxy); ok {
		return target, nil
	}
	shape := reflect.TypeOf(target)
	id, ok := identityName(target, name)
	if !ok {
		// anonymous values have no identity, every call builds its own proxy
		return c.wrap(target, name, shape)
	}
	key := beanKey{shape: shape, name: id}
	if p, ok := c.proxies.Load(key); ok {
		return p, nil
	}
	if advised, ok := c.advised.Load(key); ok && !advised {
		return target, nil
	}

	c.wrapMu.Lock()
	defer c.wrapMu.Unlock()
	if p, ok := c.proxies.Load(key); ok {
		return p, nil
	}
	if advised, ok := c.advised.Load(key); ok && !advised {
		return target, nil
	}
	result, err := c.wrap(target, name, shape)
	if err != nil {
		return nil, err
	}
	if p, ok := result.(*Proxy); ok {
		c.proxies.Store(key, p)
		c.advised.Store(key, true)
	} else {
		c.advised.Store(key, false)
	}
	return result, nil
}

func (c *AutoProxyCreator) wrap(target any, name string, shape reflect.Type) (any, error) {
	if c.isInfrastructure(shape) || c.shouldSkip(name, shape) {
		return target, nil
	}
	capabilities := c.capabilitiesOf(name, shape)
	advisors := ResolveApplicableAdvisors(c.CandidateAdvisors(), shape, capabilities...)
	if len(advisors) == 0 {
		return target, nil
	}
	return c.createProxy(shape, name, advisors, NewSingletonTargetSource(target), capabilities)
}

// IsAdvised reports whether a decision exists for the identity and what it was.
func (c *AutoProxyCreator) IsAdvised(shape reflect.Type, name string) (advised bool, decided bool) {
	return c.advised.Load(beanKey{shape: shape, name: name})
}

func (c *AutoProxyCreator) createProxy(shape reflect.Type, name string, specific []types.Advisor, ts types.TargetSource, capabilities []reflect.Type) (*Proxy, error) {
	proxyTargetType := c.config.ProxyTargetType
	if preserver, ok := c.registry.(types.TargetTypePreserver); ok && preserver.PreserveTargetType(name, shape) {
		proxyTargetType = true
	}
	cfg := NewProxyConfig(ts,
		WithInterfaces(capabilities...),
		WithTargetType(proxyTargetType),
		WithExposedProxy(c.config.ExposeProxy),
		WithAdapters(c.adapters),
		WithCapabilities(c.capabilities),
		WithProxyLogger(c.logger),
	)
	if err := cfg.AddAdvisor(c.buildAdvisors(specific)...); err != nil {
		return nil, fmt.Errorf("proxy for %s: %w", name, err)
	}
	if c.config.Frozen {
		cfg.Freeze()
	}
	c.logger.Printf("creating proxy for component %q (%s) with %d advisors", name, types.TypeName(shape), len(specific))
	return cfg.GetProxy()
}

// buildAdvisors places the common interceptors before or after the component
// specific advisors.
func (c *AutoProxyCreator) buildAdvisors(specific []types.Advisor) []types.Advisor {
	all := make([]types.Advisor, 0, len(c.common)+len(specific))
	if c.config.ApplyCommonInterceptorsFirst {
		all = append(all, c.common...)
		all = append(all, specific...)
	} else {
		all = append(all, specific...)
		all = append(all, c.common...)
	}
	return all
}

func (c *AutoProxyCreator) capabilitiesOf(name string, shape reflect.Type) []reflect.Type {
	if c.registry == nil {
		return nil
	}
	return c.registry.CapabilitiesOf(name, shape)
}

func (c *AutoProxyCreator) isInfrastructure(shape reflect.Type) bool {
	for _, t := range infrastructureTypes {
		if shape == t || (t.Kind() == reflect.Interface && shape.Implements(t)) {
			return true
		}
	}
	return c.registry != nil && c.registry.IsInfrastructure(shape)
}

func (c *AutoProxyCreator) shouldSkip(name string, shape reflect.Type) bool {
	skipper, ok := c.registry.(types.ProxySkipper)
	return ok && skipper.ShouldSkip(name, shape)
}

// identityName returns name, or the address of reference-like anonymous
// targets. Anonymous values are copies without identity and report false.
func identityName(target any, name string) (string, bool) {
	if name != "" {
		return name, true
	}
	switch reflect.TypeOf(target).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return fmt.Sprintf("@%p", target), true
	}
	return "", false
}
