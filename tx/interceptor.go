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
	"context"
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
)

var (
	_ types.Interceptor = (*Interceptor)(nil)
	_ types.Aspect      = (*Interceptor)(nil)
)

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithManager sets the default transaction manager.
func WithManager(m Manager) InterceptorOption {
	return func(i *Interceptor) {
		i.manager = m
	}
}

// WithManagerName sets the registry name of the default transaction manager.
func WithManagerName(name string) InterceptorOption {
	return func(i *Interceptor) {
		i.managerName = name
	}
}

// WithRegistry sets the registry that resolves qualifiers and manager names.
func WithRegistry(registry types.ComponentRegistry) InterceptorOption {
	return func(i *Interceptor) {
		i.registry = registry
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

// Interceptor runs transactional methods inside transactions.
//
// Interceptor 事务拦截器：根据事务属性开启、加入或挂起事务，并根据调用结果提交或回滚。
type Interceptor struct {
	source      AttributeSource
	manager     Manager
	managerName string
	registry    types.ComponentRegistry
	logger      types.Logger
	order       int
	managers    *xsync.MapOf[string, Manager]
}

// NewInterceptor creates an interceptor over source. Qualifiers of sources
// implementing AttributeLister, and the default manager name, are resolved
// right away so configuration errors surface here and not at call time.
func NewInterceptor(source AttributeSource, opts ...InterceptorOption) (*Interceptor, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: attribute source is required", ErrInvalidAttribute)
	}
	i := &Interceptor{
		source:   source,
		order:    types.LowestPrecedence,
		managers: xsync.NewMapOf[string, Manager](),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = types.NopLogger()
	}
	if i.manager == nil && i.managerName != "" {
		m, err := i.lookup(i.managerName)
		if err != nil {
			return nil, err
		}
		i.manager = m
	}
	if lister, ok := source.(AttributeLister); ok {
		for _, attr := range lister.Attributes() {
			if _, err := i.determineManager(attr); err != nil {
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

// Source returns the attribute source.
func (i *Interceptor) Source() AttributeSource {
	return i.source
}

// Invoke implements types.Interceptor. Methods without an attribute proceed
// without any transaction handling.
func (i *Interceptor) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	m := inv.Method()
	attr := i.source.Attribute(m, inv.TargetType())
	if attr == nil {
		return inv.Proceed(ctx)
	}
	if attr.Name == "" {
		attr = attr.WithName(joinPoint(m, inv.TargetType()))
	}
	manager, err := i.determineManager(attr)
	if err != nil {
		return nil, err
	}
	var results []any
	err = execute(ctx, manager, attr, i.logger, func(txCtx context.Context) error {
		var callErr error
		results, callErr = inv.Proceed(txCtx)
		return callErr
	})
	return results, err
}

// determineManager picks the manager for attr: its qualifier, then the
// default manager, then the registry entry named by WithManagerName.
func (i *Interceptor) determineManager(attr *Attribute) (Manager, error) {
	if attr != nil && attr.Qualifier != "" {
		return i.lookup(attr.Qualifier)
	}
	if i.manager != nil {
		return i.manager, nil
	}
	return nil, fmt.Errorf("%w: no default transaction manager", ErrManagerNotFound)
}

func (i *Interceptor) lookup(name string) (Manager, error) {
	if m, ok := i.managers.Load(name); ok {
		return m, nil
	}
	if i.registry == nil {
		return nil, fmt.Errorf("%w: %q, no registry", ErrManagerNotFound, name)
	}
	component, err := i.registry.LookupByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrManagerNotFound, name, err)
	}
	m, ok := component.(Manager)
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %T", ErrManagerNotFound, name, component)
	}
	m, _ = i.managers.LoadOrStore(name, m)
	return m, nil
}

// Execute runs fn inside a transaction of manager described by attr, the
// programmatic counterpart of the interceptor. fn receives the context
// carrying the transaction.
//
// Execute 在事务中执行 fn。
func Execute(ctx context.Context, manager Manager, attr *Attribute, fn func(ctx context.Context) error) error {
	if attr == nil {
		attr = DefaultAttribute()
	}
	return execute(ctx, manager, attr, types.NopLogger(), fn)
}

func execute(ctx context.Context, manager Manager, attr *Attribute, logger types.Logger, fn func(ctx context.Context) error) error {
	txCtx, status, err := manager.Begin(ctx, attr)
	if err != nil {
		return err
	}
	info := &Info{Manager: manager, Attribute: attr, JoinPoint: attr.Name, Status: status}
	txCtx = push(txCtx, info)

	completed := false
	defer func() {
		if !completed {
			// fn panicked
			info.pop()
			if err := manager.Rollback(txCtx, status); err != nil {
				logger.Printf("rollback of [%s] after panic failed: %v", info.JoinPoint, err)
			}
		}
	}()
	callErr := fn(txCtx)
	completed = true
	// completion runs on behalf of the enclosing call
	info.pop()

	if callErr != nil {
		return completeAfterError(txCtx, info, callErr, logger)
	}
	return manager.Commit(txCtx, status)
}

func completeAfterError(ctx context.Context, info *Info, callErr error, logger types.Logger) error {
	if info.Attribute.ShouldRollback(callErr) {
		logger.Printf("completing transaction for [%s] after error: %v", info.JoinPoint, callErr)
		if err := info.Manager.Rollback(ctx, info.Status); err != nil {
			logger.Printf("application error overridden by rollback error: %v", callErr)
			return &SystemError{Op: "rollback", Err: err, Application: callErr}
		}
		return callErr
	}
	if err := info.Manager.Commit(ctx, info.Status); err != nil {
		logger.Printf("application error overridden by commit error: %v", callErr)
		return &SystemError{Op: "commit", Err: err, Application: callErr}
	}
	return callErr
}

func joinPoint(m types.Method, shape reflect.Type) string {
	if shape == nil {
		return m.String()
	}
	return types.ShortName(shape) + "." + m.Name
}
