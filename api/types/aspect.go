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

package types

import (
	"context"
	"math"
	"reflect"
)

const (
	// HighestPrecedence is the smallest order value, it runs outermost.
	HighestPrecedence = math.MinInt32
	// LowestPrecedence is the largest order value, it runs innermost.
	LowestPrecedence = math.MaxInt32
)

// Aspect is the base interface of everything that takes part in an interception
// chain. Lower Order values run first (outermost).
//
// Aspect 增强点接口的基类，Order 值越小越先执行。
type Aspect interface {
	// Order returns the execution order, the smaller the value, the higher the priority
	// Order 返回执行顺序，值越小，优先级越高
	Order() int
}

// Advice is the behavior attached to an advisor. It is one of Interceptor,
// BeforeAdvice, AfterReturningAdvice, ThrowsAdvice or any kind an adapter has
// been registered for.
//
// Advice 增强逻辑。
type Advice any

// Interceptor is around advice. Invoke receives the invocation and decides
// whether, when and how often to continue with inv.Proceed.
//
// Interceptor 环绕增强，通过 inv.Proceed 继续执行调用链。
type Interceptor interface {
	Invoke(ctx context.Context, inv Invocation) ([]any, error)
}

// InterceptorFunc adapts an ordinary function to the Interceptor interface.
type InterceptorFunc func(ctx context.Context, inv Invocation) ([]any, error)

// Invoke calls f(ctx, inv).
func (f InterceptorFunc) Invoke(ctx context.Context, inv Invocation) ([]any, error) {
	return f(ctx, inv)
}

// BeforeAdvice runs before the invocation proceeds. A returned error aborts the
// call and the target is not reached.
//
// BeforeAdvice 前置增强。
type BeforeAdvice interface {
	Before(ctx context.Context, inv Invocation) error
}

// AfterReturningAdvice runs after a successful invocation.
//
// AfterReturningAdvice 返回后增强。
type AfterReturningAdvice interface {
	AfterReturning(ctx context.Context, inv Invocation, results []any) error
}

// ThrowsAdvice observes failed invocations. The error is always passed on to
// the caller.
//
// ThrowsAdvice 异常增强。
type ThrowsAdvice interface {
	AfterThrowing(ctx context.Context, inv Invocation, err error)
}

// IntroductionInterceptor adds capability interfaces to a proxy. It is only
// invoked for operations declared by the interfaces it implements.
//
// IntroductionInterceptor 引入增强，为代理添加额外的能力接口。
type IntroductionInterceptor interface {
	Interceptor
	ImplementsInterface(iface reflect.Type) bool
}

// Advisor holds one piece of advice together with the rule for where it applies.
// An Advisor that is neither a PointcutAdvisor nor an IntroductionAdvisor
// applies everywhere.
//
// Advisor 通知器，持有增强逻辑以及其适用规则。
type Advisor interface {
	Aspect
	Advice() Advice
}

// PointcutAdvisor is an Advisor driven by a Pointcut.
type PointcutAdvisor interface {
	Advisor
	Pointcut() Pointcut
}

// IntroductionAdvisor is an Advisor that introduces extra capability interfaces.
type IntroductionAdvisor interface {
	Advisor
	ClassFilter() ClassFilter
	Interfaces() []reflect.Type
}

// Named is implemented by advisors and components that carry a name.
type Named interface {
	Name() string
}

// Invocation is the join point handed to interceptors.
//
// Invocation 连接点，传递给每个拦截器。
type Invocation interface {
	// Method returns the invoked operation.
	Method() Method
	// Arguments returns the live argument slice. Interceptors may replace elements.
	Arguments() []any
	// Target returns the component instance the call is dispatched to.
	Target() any
	// TargetType returns the component shape.
	TargetType() reflect.Type
	// Proxy returns the proxy that received the call.
	Proxy() any
	// Proceed runs the next interceptor, or the target once the chain is exhausted.
	Proceed(ctx context.Context) ([]any, error)
	// Attribute returns a value stored by an earlier interceptor of the same call.
	Attribute(key string) (any, bool)
	// SetAttribute stores a value visible to later interceptors of the same call.
	SetAttribute(key string, value any)
}
