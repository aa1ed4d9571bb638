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

package pointcut

import (
	"reflect"

	"github.com/rulego/weave/api/types"
)

var _ types.Pointcut = (*Pointcut)(nil)

// True is the pointcut that matches every method of every shape.
var True types.Pointcut = New(TrueClassFilter, TrueMethodMatcher)

// Pointcut is a plain ClassFilter and MethodMatcher pair.
type Pointcut struct {
	filter  types.ClassFilter
	matcher types.MethodMatcher
}

// New creates a pointcut. Nil parts match everything.
func New(filter types.ClassFilter, matcher types.MethodMatcher) *Pointcut {
	if filter == nil {
		filter = TrueClassFilter
	}
	if matcher == nil {
		matcher = TrueMethodMatcher
	}
	return &Pointcut{filter: filter, matcher: matcher}
}

// ForType matches every method of shapes assignable to t.
func ForType(t reflect.Type) *Pointcut {
	return New(TypeFilter(t), TrueMethodMatcher)
}

// ForMethods matches methods named by patterns on shapes assignable to t.
// A nil t matches every shape.
func ForMethods(t reflect.Type, patterns ...string) *Pointcut {
	var filter types.ClassFilter
	if t != nil {
		filter = TypeFilter(t)
	}
	return New(filter, NameMatcher(patterns...))
}

// ClassFilter returns the class filter.
func (p *Pointcut) ClassFilter() types.ClassFilter {
	return p.filter
}

// MethodMatcher returns the method matcher.
func (p *Pointcut) MethodMatcher() types.MethodMatcher {
	return p.matcher
}

// Union matches where any of pointcuts matches. Each method is checked against
// the method matcher of a pointcut whose class filter accepted the shape.
func Union(pointcuts ...types.Pointcut) *Pointcut {
	filters := make([]types.ClassFilter, 0, len(pointcuts))
	for _, pc := range pointcuts {
		filters = append(filters, pc.ClassFilter())
	}
	return New(UnionFilter(filters...), &pairedUnionMatcher{pointcuts: pointcuts})
}

// Intersection matches where all of pointcuts match.
func Intersection(pointcuts ...types.Pointcut) *Pointcut {
	filters := make([]types.ClassFilter, 0, len(pointcuts))
	matchers := make([]types.MethodMatcher, 0, len(pointcuts))
	for _, pc := range pointcuts {
		filters = append(filters, pc.ClassFilter())
		matchers = append(matchers, pc.MethodMatcher())
	}
	return New(IntersectionFilter(filters...), IntersectionMatcher(matchers...))
}

// Matches reports whether pc matches method m of shape, ignoring runtime checks.
func Matches(pc types.Pointcut, m types.Method, shape reflect.Type) bool {
	return pc.ClassFilter().Matches(shape) && MatchesMethod(pc.MethodMatcher(), m, shape, false)
}

// pairedUnionMatcher keeps each method matcher tied to its own class filter so
// a union of pointcuts does not leak one pointcut's methods to another's shapes.
type pairedUnionMatcher struct {
	pointcuts []types.Pointcut
}

func (u *pairedUnionMatcher) Matches(m types.Method, shape reflect.Type) bool {
	return u.MatchesWithIntroductions(m, shape, false)
}

func (u *pairedUnionMatcher) MatchesWithIntroductions(m types.Method, shape reflect.Type, hasIntroductions bool) bool {
	for _, pc := range u.pointcuts {
		if pc.ClassFilter().Matches(shape) && matchesMethod(pc.MethodMatcher(), m, shape, hasIntroductions) {
			return true
		}
	}
	return false
}

func (u *pairedUnionMatcher) IsRuntime() bool {
	for _, pc := range u.pointcuts {
		if pc.MethodMatcher().IsRuntime() {
			return true
		}
	}
	return false
}

func (u *pairedUnionMatcher) MatchesArgs(m types.Method, shape reflect.Type, args []any) bool {
	for _, pc := range u.pointcuts {
		mm := pc.MethodMatcher()
		if pc.ClassFilter().Matches(shape) && mm.Matches(m, shape) &&
			(!mm.IsRuntime() || mm.MatchesArgs(m, shape, args)) {
			return true
		}
	}
	return false
}
