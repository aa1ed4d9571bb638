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

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
)

var (
	_ types.PointcutAdvisor         = (*DefaultAdvisor)(nil)
	_ types.Named                   = (*DefaultAdvisor)(nil)
	_ types.IntroductionAdvisor     = (*DefaultIntroductionAdvisor)(nil)
	_ types.IntroductionInterceptor = (*DelegatingIntroductionInterceptor)(nil)
)

// DefaultAdvisor is a PointcutAdvisor holding any supported advice.
type DefaultAdvisor struct {
	name     string
	pointcut types.Pointcut
	advice   types.Advice
	order    int
}

// NewAdvisor creates an advisor for advice. A nil pointcut matches everything.
// The order is taken from the advice when it implements types.Aspect, otherwise
// it is types.LowestPrecedence.
func NewAdvisor(pc types.Pointcut, advice types.Advice) *DefaultAdvisor {
	if pc == nil {
		pc = pointcut.True
	}
	order := types.LowestPrecedence
	if aspect, ok := advice.(types.Aspect); ok {
		order = aspect.Order()
	}
	return &DefaultAdvisor{pointcut: pc, advice: advice, order: order}
}

// NewNamedAdvisor is like NewAdvisor and gives the advisor a name.
func NewNamedAdvisor(name string, pc types.Pointcut, advice types.Advice) *DefaultAdvisor {
	a := NewAdvisor(pc, advice)
	a.name = name
	return a
}

// WithOrder sets the order and returns the advisor.
func (a *DefaultAdvisor) WithOrder(order int) *DefaultAdvisor {
	a.order = order
	return a
}

func (a *DefaultAdvisor) Advice() types.Advice { return a.advice }

func (a *DefaultAdvisor) Pointcut() types.Pointcut { return a.pointcut }

func (a *DefaultAdvisor) Order() int { return a.order }

func (a *DefaultAdvisor) Name() string { return a.name }

func (a *DefaultAdvisor) String() string {
	return fmt.Sprintf("DefaultAdvisor[%s, advice %T, order %d]", a.name, a.advice, a.order)
}

// DefaultIntroductionAdvisor introduces interfaces implemented by an
// IntroductionInterceptor into every shape its class filter accepts.
type DefaultIntroductionAdvisor struct {
	name        string
	interceptor types.IntroductionInterceptor
	interfaces  []reflect.Type
	filter      types.ClassFilter
	order       int
}

// NewIntroductionAdvisor creates an introduction advisor for interfaces.
func NewIntroductionAdvisor(interceptor types.IntroductionInterceptor, interfaces ...reflect.Type) *DefaultIntroductionAdvisor {
	order := types.LowestPrecedence
	if aspect, ok := interceptor.(types.Aspect); ok {
		order = aspect.Order()
	}
	return &DefaultIntroductionAdvisor{
		interceptor: interceptor,
		interfaces:  interfaces,
		filter:      pointcut.TrueClassFilter,
		order:       order,
	}
}

// WithClassFilter restricts the shapes receiving the introduction.
func (a *DefaultIntroductionAdvisor) WithClassFilter(filter types.ClassFilter) *DefaultIntroductionAdvisor {
	a.filter = filter
	return a
}

// WithName sets the advisor name.
func (a *DefaultIntroductionAdvisor) WithName(name string) *DefaultIntroductionAdvisor {
	a.name = name
	return a
}

func (a *DefaultIntroductionAdvisor) Advice() types.Advice { return a.interceptor }

func (a *DefaultIntroductionAdvisor) ClassFilter() types.ClassFilter { return a.filter }

func (a *DefaultIntroductionAdvisor) Interfaces() []reflect.Type { return a.interfaces }

func (a *DefaultIntroductionAdvisor) Order() int { return a.order }

func (a *DefaultIntroductionAdvisor) Name() string { return a.name }

// Validate checks that every introduced type is an interface the interceptor implements.
func (a *DefaultIntroductionAdvisor) Validate() error {
	return validateIntroduction(a)
}

func validateIntroduction(a types.IntroductionAdvisor) error {
	ii, ok := a.Advice().(types.IntroductionInterceptor)
	if !ok {
		return fmt.Errorf("%w: introduction advice %T is not an IntroductionInterceptor", types.ErrUnknownAdviceType, a.Advice())
	}
	for _, iface := range a.Interfaces() {
		if iface == nil || iface.Kind() != reflect.Interface {
			return fmt.Errorf("introduced type %v is not an interface", iface)
		}
		if !ii.ImplementsInterface(iface) {
			return fmt.Errorf("introduction interceptor %T does not implement %s", ii, iface)
		}
	}
	return nil
}

// DelegatingIntroductionInterceptor implements introduced interfaces by
// forwarding their methods to a delegate. Other methods pass straight through.
//
// DelegatingIntroductionInterceptor 把引入接口的方法转发给委托对象。
type DelegatingIntroductionInterceptor struct {
	delegate   any
	interfaces []reflect.Type
}

// NewDelegatingIntroductionInterceptor creates an interceptor that introduces
// interfaces, all of which delegate must implement.
func NewDelegatingIntroductionInterceptor(delegate any, interfaces ...reflect.Type) (*DelegatingIntroductionInterceptor, error) {
	dt := reflect.TypeOf(delegate)
	for _, iface := range interfaces {
		if iface.Kind() != reflect.Interface || dt == nil || !dt.Implements(iface) {
			return nil, fmt.Errorf("delegate %T does not implement %v", delegate, iface)
		}
	}
	return &DelegatingIntroductionInterceptor{delegate: delegate, interfaces: interfaces}, nil
}

// ImplementsInterface reports whether iface is one of the introduced interfaces
// or embedded in one of them.
func (d *DelegatingIntroductionInterceptor) ImplementsInterface(iface reflect.Type) bool {
	for _, introduced := range d.interfaces {
		if introduced == iface || (iface.Kind() == reflect.Interface && introduced.Implements(iface)) {
			return true
		}
	}
	return false
}

// Invoke dispatches introduced methods to the delegate.
func (d *DelegatingIntroductionInterceptor) Invoke(ctx context.Context, inv types.Invocation) (results []any, err error) {
	m := inv.Method()
	if m.DeclaringType == nil || !d.ImplementsInterface(m.DeclaringType) {
		return inv.Proceed(ctx)
	}
	defer func() {
		if e := recover(); e != nil {
			results, err = nil, types.NewPanicError(e)
		}
	}()
	fn := reflect.ValueOf(d.delegate).MethodByName(m.Name)
	in, err := callArgs(ctx, fn.Type(), inv.Arguments())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	return splitResults(fn.Call(in))
}

// Delegate returns the object implementing the introduced interfaces.
func (d *DelegatingIntroductionInterceptor) Delegate() any {
	return d.delegate
}
