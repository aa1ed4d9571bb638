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
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/maps"
)

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithCacheManager sets the default cache manager.
func WithCacheManager(manager types.CacheManager) InterceptorOption {
	return func(i *Interceptor) {
		i.resolver = NewManagerResolver(manager)
	}
}

// WithCacheResolver sets the default cache resolver.
func WithCacheResolver(resolver CacheResolver) InterceptorOption {
	return func(i *Interceptor) {
		i.resolver = resolver
	}
}

// WithKeyGenerator sets the default key generator, DefaultKeyGenerator otherwise.
func WithKeyGenerator(generator KeyGenerator) InterceptorOption {
	return func(i *Interceptor) {
		i.keyGenerator = generator
	}
}

// WithEvaluator sets the expression evaluator, an ExprEvaluator otherwise.
func WithEvaluator(evaluator types.Evaluator) InterceptorOption {
	return func(i *Interceptor) {
		i.evaluator = evaluator
	}
}

// WithRegistry sets the registry named key generators, managers and resolvers are looked up in.
func WithRegistry(registry types.ComponentRegistry) InterceptorOption {
	return func(i *Interceptor) {
		i.registry = registry
	}
}

// WithErrorHandler sets the handler of cache store failures, PropagateErrors by default.
func WithErrorHandler(handler ErrorHandler) InterceptorOption {
	return func(i *Interceptor) {
		i.errorHandler = handler
	}
}

// WithLogger sets the logger.
func WithLogger(logger types.Logger) InterceptorOption {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

// WithOrder sets the order of the interceptor, LowestPrecedence by default.
func WithOrder(order int) InterceptorOption {
	return func(i *Interceptor) {
		i.order = order
	}
}

// Interceptor applies the cache operations of a method around its calls.
//
// Interceptor 缓存拦截器：
//  1. 调用前执行 BeforeInvocation 的清除操作
//  2. 查找 Cacheable 缓存，命中则直接返回
//  3. 未命中执行方法，然后执行调用后的清除操作并写入缓存
type Interceptor struct {
	source       OperationSource
	evaluator    types.Evaluator
	keyGenerator KeyGenerator
	resolver     CacheResolver
	registry     types.ComponentRegistry
	errorHandler ErrorHandler
	logger       types.Logger
	order        int
	metadata     *xsync.MapOf[Operation, *operationMetadata]
}

// NewInterceptor creates an interceptor over source. The operations of
// sources implementing OperationLister are validated and their named
// collaborators resolved right away.
func NewInterceptor(source OperationSource, opts ...InterceptorOption) (*Interceptor, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: operation source is required", ErrInvalidOperation)
	}
	i := &Interceptor{
		source:       source,
		keyGenerator: DefaultKeyGenerator{},
		errorHandler: PropagateErrors,
		order:        types.LowestPrecedence,
		metadata:     xsync.NewMapOf[Operation, *operationMetadata](),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = types.NopLogger()
	}
	if i.evaluator == nil {
		i.evaluator = NewExprEvaluator()
	}
	if lister, ok := source.(OperationLister); ok {
		for _, op := range lister.AllOperations() {
			if _, err := i.metadataOf(op); err != nil {
				return nil, err
			}
		}
	}
	return i, nil
}

// Order implements types.Aspect.
func (i *Interceptor) Order() int {
	return i.order
}

// Source returns the operation source.
func (i *Interceptor) Source() OperationSource {
	return i.source
}

// Invoke implements types.Interceptor.
func (i *Interceptor) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	ops := i.source.Operations(inv.Method(), inv.TargetType())
	if len(ops) == 0 {
		return inv.Proceed(ctx)
	}
	contexts, err := i.contexts(inv, ops)
	if err != nil {
		return nil, err
	}
	return i.execute(ctx, inv, contexts)
}

func (i *Interceptor) execute(ctx context.Context, inv types.Invocation, contexts *operationContexts) ([]any, error) {
	if err := i.processEvictions(ctx, contexts.evicts, true, nil, false); err != nil {
		return nil, err
	}

	cached, hit, err := i.findCachedItem(ctx, contexts.cacheables)
	if err != nil {
		return nil, err
	}

	if hit && !i.hasPassingPut(contexts.puts) {
		results, err := resultsOf(cached, inv.Method())
		if err == nil {
			return results, nil
		}
		// 缓存值无法转换为返回类型时当作未命中
		i.logger.Printf("cached value for %s ignored: %v", inv.Method(), err)
		hit = false
	}

	results, callErr := inv.Proceed(ctx)
	value := valueOf(results)

	if err := i.processEvictions(ctx, contexts.evicts, false, value, callErr == nil); err != nil {
		if callErr != nil {
			i.logger.Printf("cache eviction after failed call %s: %v", inv.Method(), err)
			return results, callErr
		}
		return results, err
	}
	if callErr != nil {
		return results, callErr
	}

	var puts []*operationContext
	if !hit {
		puts = append(puts, contexts.cacheables...)
	}
	puts = append(puts, contexts.puts...)
	if err := i.processPuts(ctx, puts, value); err != nil {
		return results, err
	}
	return results, nil
}

// findCachedItem probes the caches of every cacheable operation whose
// condition passes. The first hit wins.
func (i *Interceptor) findCachedItem(ctx context.Context, contexts []*operationContext) (any, bool, error) {
	for _, c := range contexts {
		passing, err := c.isConditionPassing(nil, false)
		if err != nil {
			return nil, false, err
		}
		if !passing {
			continue
		}
		key, err := c.generateKey(nil, false)
		if err != nil {
			return nil, false, err
		}
		for _, cache := range c.caches {
			v, ok, err := cache.Get(ctx, key)
			if err != nil {
				if err = i.errorHandler(ctx, c.op, err); err != nil {
					return nil, false, err
				}
				continue
			}
			if ok {
				return v, true, nil
			}
		}
	}
	return nil, false, nil
}

// hasPassingPut reports whether a put operation may apply to this call.
// Conditions that cannot be decided before the call count as passing.
func (i *Interceptor) hasPassingPut(contexts []*operationContext) bool {
	for _, c := range contexts {
		if c.base.Condition == "" {
			return true
		}
		passing, err := c.evaluator.EvaluateCondition(c.base.Condition, c.bindings(nil, false))
		if err != nil || passing {
			return true
		}
	}
	return false
}

func (i *Interceptor) processEvictions(ctx context.Context, contexts []*operationContext, before bool, result any, hasResult bool) error {
	for _, c := range contexts {
		if c.op.(*CacheEvict).BeforeInvocation != before {
			continue
		}
		passing, err := c.isConditionPassing(result, hasResult)
		if err != nil {
			return err
		}
		if !passing {
			continue
		}
		if err := i.evict(ctx, c, result, hasResult); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interceptor) evict(ctx context.Context, c *operationContext, result any, hasResult bool) error {
	evict := c.op.(*CacheEvict)
	var key string
	if !evict.AllEntries {
		var err error
		if key, err = c.generateKey(result, hasResult); err != nil {
			return err
		}
	}
	for _, cache := range c.caches {
		var err error
		if evict.AllEntries {
			err = cache.Clear(ctx)
		} else {
			err = cache.Evict(ctx, key)
		}
		if err != nil {
			if err = i.errorHandler(ctx, c.op, err); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Interceptor) processPuts(ctx context.Context, contexts []*operationContext, value any) error {
	for _, c := range contexts {
		passing, err := c.isConditionPassing(value, true)
		if err != nil {
			return err
		}
		if !passing {
			continue
		}
		ok, err := c.canPutToCache(value)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key, err := c.generateKey(value, true)
		if err != nil {
			return err
		}
		for _, cache := range c.caches {
			if err := cache.Put(ctx, key, value); err != nil {
				if err = i.errorHandler(ctx, c.op, err); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (i *Interceptor) contexts(inv types.Invocation, ops []Operation) (*operationContexts, error) {
	var argNames []string
	if namer, ok := inv.Target().(ArgNamer); ok {
		argNames = namer.ArgNames(inv.Method().Name)
	}
	contexts := &operationContexts{}
	for _, op := range ops {
		meta, err := i.metadataOf(op)
		if err != nil {
			return nil, err
		}
		caches, err := meta.resolver.ResolveCaches(op, inv)
		if err != nil {
			return nil, err
		}
		c := &operationContext{
			op:        op,
			base:      op.Base(),
			meta:      meta,
			inv:       inv,
			evaluator: i.evaluator,
			caches:    caches,
			argNames:  argNames,
		}
		if len(c.base.ArgNames) > 0 {
			c.argNames = c.base.ArgNames
		}
		switch op.(type) {
		case *Cacheable:
			contexts.cacheables = append(contexts.cacheables, c)
		case *CachePut:
			contexts.puts = append(contexts.puts, c)
		case *CacheEvict:
			contexts.evicts = append(contexts.evicts, c)
		default:
			return nil, fmt.Errorf("%w: unknown operation %T", ErrInvalidOperation, op)
		}
	}
	return contexts, nil
}

// metadataOf validates op and resolves its named collaborators once.
func (i *Interceptor) metadataOf(op Operation) (*operationMetadata, error) {
	if meta, ok := i.metadata.Load(op); ok {
		return meta, nil
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	base := op.Base()
	meta := &operationMetadata{keyGenerator: i.keyGenerator, resolver: i.resolver}
	if base.KeyGenerator != "" {
		g, err := lookup[KeyGenerator](i.registry, base.KeyGenerator)
		if err != nil {
			return nil, err
		}
		meta.keyGenerator = g
	}
	if base.CacheResolver != "" {
		r, err := lookup[CacheResolver](i.registry, base.CacheResolver)
		if err != nil {
			return nil, err
		}
		meta.resolver = r
	} else if base.CacheManager != "" {
		m, err := lookup[types.CacheManager](i.registry, base.CacheManager)
		if err != nil {
			return nil, err
		}
		meta.resolver = NewManagerResolver(m)
	}
	if meta.resolver == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCacheResolver, op)
	}
	for _, expr := range expressionsOf(op) {
		if c, ok := i.evaluator.(interface{ Compile(string) error }); ok && expr != "" {
			if err := c.Compile(expr); err != nil {
				return nil, err
			}
		}
	}
	meta, _ = i.metadata.LoadOrStore(op, meta)
	return meta, nil
}

func expressionsOf(op Operation) []string {
	base := op.Base()
	exprs := []string{base.Key, base.Condition}
	switch o := op.(type) {
	case *Cacheable:
		exprs = append(exprs, o.Unless)
	case *CachePut:
		exprs = append(exprs, o.Unless)
	}
	return exprs
}

func lookup[T any](registry types.ComponentRegistry, name string) (T, error) {
	var zero T
	if registry == nil {
		return zero, fmt.Errorf("%w: %q, no registry", types.ErrComponentNotFound, name)
	}
	component, err := registry.LookupByName(name)
	if err != nil {
		return zero, err
	}
	v, ok := component.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is a %T, not a %s", ErrInvalidOperation, name, component, types.TypeOf[T]())
	}
	return v, nil
}

// valueOf is the value stored for results: the single result, or the whole slice.
func valueOf(results []any) any {
	switch len(results) {
	case 0:
		return nil
	case 1:
		return results[0]
	default:
		return results
	}
}

// resultsOf turns a cached value back into the results of m, converting
// values a remote store decoded into generic shapes.
func resultsOf(v any, m types.Method) ([]any, error) {
	var outs []reflect.Type
	if m.Type != nil {
		for j := 0; j < m.Type.NumOut(); j++ {
			outs = append(outs, m.Type.Out(j))
		}
		if m.ReturnsError() {
			outs = outs[:len(outs)-1]
		}
	}
	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		r, err := adapt(v, outs[0])
		if err != nil {
			return nil, err
		}
		return []any{r}, nil
	}
	values, ok := v.([]any)
	if !ok || len(values) != len(outs) {
		return nil, fmt.Errorf("cached %T does not hold %d results", v, len(outs))
	}
	results := make([]any, len(outs))
	for j, out := range outs {
		r, err := adapt(values[j], out)
		if err != nil {
			return nil, err
		}
		results[j] = r
	}
	return results, nil
}

func adapt(v any, t reflect.Type) (any, error) {
	if v == nil {
		return reflect.Zero(t).Interface(), nil
	}
	if reflect.TypeOf(v).AssignableTo(t) {
		return v, nil
	}
	out := reflect.New(t)
	if err := maps.Map2Struct(v, out.Interface()); err != nil {
		return nil, fmt.Errorf("cached %T is not a %s: %w", v, t, err)
	}
	return out.Elem().Interface(), nil
}
