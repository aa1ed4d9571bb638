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
)

var _ types.Invocation = (*ReflectiveInvocation)(nil)

// ReflectiveInvocation walks an interceptor chain and finally calls the target
// method through reflection. Every interceptor receives its own view of the
// invocation whose cursor points at the next element, so an interceptor may
// call Proceed more than once (retries) and each call runs the rest of the
// chain exactly once.
//
// ReflectiveInvocation 执行拦截器链，链执行完毕后通过反射调用目标方法。
type ReflectiveInvocation struct {
	proxy      any
	target     any
	targetType reflect.Type
	method     types.Method
	args       []any
	chain      []types.Interceptor
	index      int
	attrs      map[string]any
}

// NewInvocation creates an invocation positioned before the first interceptor.
func NewInvocation(proxy, target any, method types.Method, args []any, chain []types.Interceptor) *ReflectiveInvocation {
	return &ReflectiveInvocation{
		proxy:      proxy,
		target:     target,
		targetType: reflect.TypeOf(target),
		method:     method,
		args:       args,
		chain:      chain,
		attrs:      make(map[string]any),
	}
}

func (inv *ReflectiveInvocation) Method() types.Method { return inv.method }

func (inv *ReflectiveInvocation) Arguments() []any { return inv.args }

func (inv *ReflectiveInvocation) Target() any { return inv.target }

func (inv *ReflectiveInvocation) TargetType() reflect.Type { return inv.targetType }

func (inv *ReflectiveInvocation) Proxy() any { return inv.proxy }

func (inv *ReflectiveInvocation) Attribute(key string) (any, bool) {
	v, ok := inv.attrs[key]
	return v, ok
}

func (inv *ReflectiveInvocation) SetAttribute(key string, value any) {
	inv.attrs[key] = value
}

// Proceed runs the next interceptor, or the target once every interceptor ran.
func (inv *ReflectiveInvocation) Proceed(ctx context.Context) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if inv.index >= len(inv.chain) {
		return inv.invokeTarget(ctx)
	}
	next := *inv
	next.index = inv.index + 1
	return inv.chain[inv.index].Invoke(ctx, &next)
}

// invokeTarget calls the target method. A leading context.Context parameter
// receives ctx, nil arguments become zero values and a trailing error result
// is returned as the error.
func (inv *ReflectiveInvocation) invokeTarget(ctx context.Context) (results []any, err error) {
	defer func() {
		if e := recover(); e != nil {
			results, err = nil, types.NewPanicError(e)
		}
	}()
	if inv.target == nil {
		return nil, fmt.Errorf("%w: no target for %s", types.ErrMethodNotExposed, inv.method)
	}
	fn := reflect.ValueOf(inv.target).MethodByName(inv.method.Name)
	if !fn.IsValid() {
		if d, ok := inv.target.(types.Dispatcher); ok {
			return d.Dispatch(ctx, inv.method.Name, inv.args)
		}
		return nil, fmt.Errorf("%w: %T does not implement %s", types.ErrMethodNotExposed, inv.target, inv.method)
	}
	in, err := callArgs(ctx, fn.Type(), inv.args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inv.method, err)
	}
	return splitResults(fn.Call(in))
}

func callArgs(ctx context.Context, ft reflect.Type, args []any) ([]reflect.Value, error) {
	numIn := ft.NumIn()
	offset := 0
	in := make([]reflect.Value, 0, numIn)
	if numIn > 0 && ft.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
		offset = 1
	}
	fixed := numIn - offset
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("%w: want at least %d arguments, got %d", types.ErrArgumentMismatch, fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("%w: want %d arguments, got %d", types.ErrArgumentMismatch, fixed, len(args))
	}
	for i, arg := range args {
		pi := i + offset
		var pt reflect.Type
		if ft.IsVariadic() && pi >= numIn-1 {
			pt = ft.In(numIn - 1).Elem()
		} else {
			pt = ft.In(pi)
		}
		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}
	return in, nil
}

func convertArg(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(pt), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(pt.Kind()) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", types.ErrArgumentMismatch, v.Type(), pt)
}

func splitResults(outs []reflect.Value) ([]any, error) {
	var err error
	if n := len(outs); n > 0 && outs[n-1].Type() == errorType {
		if e := outs[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		outs = outs[:n-1]
	}
	results := make([]any, len(outs))
	for i, out := range outs {
		results[i] = out.Interface()
	}
	return results, err
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)
