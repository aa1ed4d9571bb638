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

// Package pointcut provides the building blocks used to decide where advice
// applies: class filters, method matchers and their compositions, a control
// flow matcher that inspects the call stack and expression based pointcuts.
//
// Package pointcut 提供切入点构建：类型过滤器、方法匹配器及其组合，
// 基于调用栈的控制流匹配器以及表达式切入点。
package pointcut

import (
	"reflect"

	"github.com/rulego/weave/api/types"
)

var (
	_ types.ClassFilter = ClassFilterFunc(nil)
	_ types.ClassFilter = (*unionFilter)(nil)
	_ types.ClassFilter = (*intersectionFilter)(nil)
)

// TrueClassFilter matches every shape.
var TrueClassFilter types.ClassFilter = trueFilter{}

type trueFilter struct{}

func (trueFilter) Matches(reflect.Type) bool { return true }

func (trueFilter) String() string { return "ClassFilter.TRUE" }

// ClassFilterFunc adapts a function to types.ClassFilter.
type ClassFilterFunc func(shape reflect.Type) bool

// Matches calls f(shape).
func (f ClassFilterFunc) Matches(shape reflect.Type) bool {
	return f(shape)
}

// TypeFilter matches shapes assignable to t. When t is an interface any shape
// implementing it matches, otherwise t itself or a pointer to t.
func TypeFilter(t reflect.Type) types.ClassFilter {
	return ClassFilterFunc(func(shape reflect.Type) bool {
		return assignable(shape, t)
	})
}

// PackageFilter matches shapes declared in an import path starting with prefix.
func PackageFilter(prefix string) types.ClassFilter {
	return ClassFilterFunc(func(shape reflect.Type) bool {
		return SimpleMatch(prefix+"*", types.PackagePath(shape))
	})
}

// UnionFilter matches when any of filters matches.
func UnionFilter(filters ...types.ClassFilter) types.ClassFilter {
	return &unionFilter{filters: filters}
}

// IntersectionFilter matches when all of filters match.
func IntersectionFilter(filters ...types.ClassFilter) types.ClassFilter {
	return &intersectionFilter{filters: filters}
}

type unionFilter struct {
	filters []types.ClassFilter
}

func (f *unionFilter) Matches(shape reflect.Type) bool {
	for _, filter := range f.filters {
		if filter.Matches(shape) {
			return true
		}
	}
	return false
}

type intersectionFilter struct {
	filters []types.ClassFilter
}

func (f *intersectionFilter) Matches(shape reflect.Type) bool {
	for _, filter := range f.filters {
		if !filter.Matches(shape) {
			return false
		}
	}
	return true
}

func assignable(shape, t reflect.Type) bool {
	if shape == nil || t == nil {
		return false
	}
	if shape == t {
		return true
	}
	if t.Kind() == reflect.Interface {
		return shape.Implements(t)
	}
	return shape.Kind() == reflect.Ptr && shape.Elem() == t
}
