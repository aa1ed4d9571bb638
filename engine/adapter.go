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
	"sync"

	"github.com/rulego/weave/api/types"
)

// AdvisorAdapter turns one kind of advice into an interceptor.
//
// AdvisorAdapter 增强适配器，把某种增强转换为拦截器。
type AdvisorAdapter interface {
	SupportsAdvice(advice types.Advice) bool
	Interceptor(advisor types.Advisor) types.Interceptor
}

// AdapterRegistry converts advisors into interceptors using the registered
// adapters. Before, after-returning and throws advice are supported out of the box.
type AdapterRegistry struct {
	adapters []AdvisorAdapter
	sync.RWMutex
}

// DefaultAdapterRegistry is shared by proxies that were not given their own registry.
var DefaultAdapterRegistry = NewAdapterRegistry()

// NewAdapterRegistry creates a registry with the built-in adapters.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapters: []AdvisorAdapter{beforeAdapter{}, afterReturningAdapter{}, throwsAdapter{}},
	}
}

// Register adds an adapter for a custom advice kind.
func (r *AdapterRegistry) Register(adapter AdvisorAdapter) {
	r.Lock()
	defer r.Unlock()
	r.adapters = append(r.adapters, adapter)
}

// Wrap turns advice into an Advisor. Advisors are returned unchanged, other
// supported advice is wrapped in an advisor that applies everywhere.
func (r *AdapterRegistry) Wrap(advice any) (types.Advisor, error) {
	if advisor, ok := advice.(types.Advisor); ok {
		return advisor, nil
	}
	if !r.supports(advice) {
		return nil, fmt.Errorf("%w: %T", types.ErrUnknownAdviceType, advice)
	}
	return NewAdvisor(nil, advice), nil
}

// Interceptors returns the interceptors for advisor. An advice may produce more
// than one interceptor when it implements several advice kinds.
func (r *AdapterRegistry) Interceptors(advisor types.Advisor) ([]types.Interceptor, error) {
	advice := advisor.Advice()
	var interceptors []types.Interceptor
	if interceptor, ok := advice.(types.Interceptor); ok {
		interceptors = append(interceptors, interceptor)
	}
	r.RLock()
	for _, adapter := range r.adapters {
		if adapter.SupportsAdvice(advice) {
			interceptors = append(interceptors, adapter.Interceptor(advisor))
		}
	}
	r.RUnlock()
	if len(interceptors) == 0 {
		return nil, fmt.Errorf("%w: %T", types.ErrUnknownAdviceType, advice)
	}
	return interceptors, nil
}

func (r *AdapterRegistry) supports(advice any) bool {
	if _, ok := advice.(types.Interceptor); ok {
		return true
	}
	r.RLock()
	defer r.RUnlock()
	for _, adapter := range r.adapters {
		if adapter.SupportsAdvice(advice) {
			return true
		}
	}
	return false
}

type beforeAdapter struct{}

func (beforeAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.BeforeAdvice)
	return ok
}

func (beforeAdapter) Interceptor(advisor types.Advisor) types.Interceptor {
	advice := advisor.Advice().(types.BeforeAdvice)
	return types.InterceptorFunc(func(ctx context.Context, inv types.Invocation) ([]any, error) {
		if err := advice.Before(ctx, inv); err != nil {
			return nil, err
		}
		return inv.Proceed(ctx)
	})
}

type afterReturningAdapter struct{}

func (afterReturningAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.AfterReturningAdvice)
	return ok
}

func (afterReturningAdapter) Interceptor(advisor types.Advisor) types.Interceptor {
	advice := advisor.Advice().(types.AfterReturningAdvice)
	return types.InterceptorFunc(func(ctx context.Context, inv types.Invocation) ([]any, error) {
		results, err := inv.Proceed(ctx)
		if err != nil {
			return results, err
		}
		if err := advice.AfterReturning(ctx, inv, results); err != nil {
			return results, err
		}
		return results, nil
	})
}

type throwsAdapter struct{}

func (throwsAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.ThrowsAdvice)
	return ok
}

func (throwsAdapter) Interceptor(advisor types.Advisor) types.Interceptor {
	advice := advisor.Advice().(types.ThrowsAdvice)
	return types.InterceptorFunc(func(ctx context.Context, inv types.Invocation) ([]any, error) {
		results, err := inv.Proceed(ctx)
		if err != nil {
			advice.AfterThrowing(ctx, inv, err)
		}
		return results, err
	})
}
