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

package types

import (
	"context"
	"reflect"
	"strings"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Method describes one operation exposed by a component shape or by one of its
// capability interfaces.
//
// Method 描述组件类型或其能力接口暴露的一个操作。
type Method struct {
	// Name is the exported method name.
	// Name 方法名
	Name string
	// DeclaringType is the interface or concrete type the method was read from.
	// DeclaringType 声明该方法的接口或具体类型
	DeclaringType reflect.Type
	// Type is the method signature without the receiver.
	// Type 不包含接收者的方法签名
	Type reflect.Type
}

// TakesContext reports whether the first parameter is a context.Context.
func (m Method) TakesContext() bool {
	return m.Type != nil && m.Type.NumIn() > 0 && m.Type.In(0) == contextType
}

// ReturnsError reports whether the last result is an error.
func (m Method) ReturnsError() bool {
	return m.Type != nil && m.Type.NumOut() > 0 && m.Type.Out(m.Type.NumOut()-1) == errorType
}

// NumArgs returns the number of caller supplied arguments, a leading
// context.Context is not counted.
func (m Method) NumArgs() int {
	if m.Type == nil {
		return 0
	}
	if m.TakesContext() {
		return m.Type.NumIn() - 1
	}
	return m.Type.NumIn()
}

// IsZero reports whether m is the zero Method.
func (m Method) IsZero() bool {
	return m.Name == "" && m.DeclaringType == nil
}

// String returns "DeclaringType.Name".
func (m Method) String() string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return TypeName(m.DeclaringType) + "." + m.Name
}

// MethodsOf returns the exported method set of t. For an interface the interface
// methods are returned, for any other type the method set of t itself, so a
// pointer shape includes its pointer receiver methods.
func MethodsOf(t reflect.Type) []Method {
	if t == nil {
		return nil
	}
	methods := make([]Method, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		mt := m.Type
		if t.Kind() != reflect.Interface {
			mt = withoutReceiver(m.Type)
		}
		methods = append(methods, Method{Name: m.Name, DeclaringType: t, Type: mt})
	}
	return methods
}

// LookupMethod finds the exported method name on t.
func LookupMethod(t reflect.Type, name string) (Method, bool) {
	if t == nil {
		return Method{}, false
	}
	m, ok := t.MethodByName(name)
	if !ok || !m.IsExported() {
		return Method{}, false
	}
	mt := m.Type
	if t.Kind() != reflect.Interface {
		mt = withoutReceiver(m.Type)
	}
	return Method{Name: m.Name, DeclaringType: t, Type: mt}, true
}

// TypeName returns a readable name for t, e.g. "*orders.Service".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// PackagePath returns the import path that declares t, dereferencing pointers.
func PackagePath(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.PkgPath()
}

// ShortName returns the unqualified type name, dereferencing pointers.
func ShortName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	if name := t.Name(); name != "" {
		return name
	}
	s := t.String()
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// TypeOf returns the reflect.Type of the type parameter T. It is the usual way
// to name an interface type: TypeOf[OrderService]().
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func withoutReceiver(ft reflect.Type) reflect.Type {
	in := make([]reflect.Type, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	out := make([]reflect.Type, 0, ft.NumOut())
	for i := 0; i < ft.NumOut(); i++ {
		out = append(out, ft.Out(i))
	}
	return reflect.FuncOf(in, out, ft.IsVariadic())
}
