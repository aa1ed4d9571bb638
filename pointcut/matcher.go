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

var (
	_ types.MethodMatcher                  = MatcherFunc(nil)
	_ types.MethodMatcher                  = (*RuntimeMatcher)(nil)
	_ types.IntroductionAwareMethodMatcher = (*unionMatcher)(nil)
	_ types.IntroductionAwareMethodMatcher = (*intersectionMatcher)(nil)
)

// TrueMethodMatcher matches every method.
var TrueMethodMatcher types.MethodMatcher = trueMatcher{}

type trueMatcher struct{}

func (trueMatcher) Matches(types.Method, reflect.Type) bool { return true }

func (trueMatcher) IsRuntime() bool { return false }

func (trueMatcher) MatchesArgs(types.Method, reflect.Type, []any) bool { return true }

func (trueMatcher) String() string { return "MethodMatcher.TRUE" }

// MatcherFunc adapts a function to a static types.MethodMatcher.
type MatcherFunc func(m types.Method, shape reflect.Type) bool

// Matches calls f(m, shape).
func (f MatcherFunc) Matches(m types.Method, shape reflect.Type) bool {
	return f(m, shape)
}

// IsRuntime returns false.
func (f MatcherFunc) IsRuntime() bool { return false }

// MatchesArgs is never consulted for a static matcher and returns false.
func (f MatcherFunc) MatchesArgs(types.Method, reflect.Type, []any) bool { return false }

// NameMatcher matches methods whose name matches any of patterns, see SimpleMatch.
func NameMatcher(patterns ...string) types.MethodMatcher {
	return MatcherFunc(func(m types.Method, _ reflect.Type) bool {
		return SimpleMatchAny(patterns, m.Name)
	})
}

// DeclaredBy matches methods that iface declares, whatever shape they are called on.
func DeclaredBy(iface reflect.Type) types.MethodMatcher {
	return MatcherFunc(func(m types.Method, _ reflect.Type) bool {
		if iface == nil {
			return false
		}
		_, ok := iface.MethodByName(m.Name)
		return ok
	})
}

// RuntimeMatcher is a dynamic matcher. Static narrows the candidate methods
// once (nil accepts all), Args is evaluated on every call.
type RuntimeMatcher struct {
	Static types.MethodMatcher
	Args   func(m types.Method, shape reflect.Type, args []any) bool
}

// Matches applies the static part.
func (r *RuntimeMatcher) Matches(m types.Method, shape reflect.Type) bool {
	return r.Static == nil || r.Static.Matches(m, shape)
}

// IsRuntime returns true.
func (r *RuntimeMatcher) IsRuntime() bool { return true }

// MatchesArgs applies the per call part.
func (r *RuntimeMatcher) MatchesArgs(m types.Method, shape reflect.Type, args []any) bool {
	return r.Args == nil || r.Args(m, shape, args)
}

// UnionMatcher matches when any of matchers matches.
func UnionMatcher(matchers ...types.MethodMatcher) types.MethodMatcher {
	return &unionMatcher{matchers: matchers}
}

// IntersectionMatcher matches when all of matchers match.
func IntersectionMatcher(matchers ...types.MethodMatcher) types.MethodMatcher {
	return &intersectionMatcher{matchers: matchers}
}

type unionMatcher struct {
	matchers []types.MethodMatcher
}

func (u *unionMatcher) Matches(m types.Method, shape reflect.Type) bool {
	return u.MatchesWithIntroductions(m, shape, false)
}

func (u *unionMatcher) MatchesWithIntroductions(m types.Method, shape reflect.Type, hasIntroductions bool) bool {
	for _, mm := range u.matchers {
		if matchesMethod(mm, m, shape, hasIntroductions) {
			return true
		}
	}
	return false
}

func (u *unionMatcher) IsRuntime() bool {
	return anyRuntime(u.matchers)
}

// MatchesArgs re-checks every member: static members by their static answer.
func (u *unionMatcher) MatchesArgs(m types.Method, shape reflect.Type, args []any) bool {
	for _, mm := range u.matchers {
		if mm.Matches(m, shape) && (!mm.IsRuntime() || mm.MatchesArgs(m, shape, args)) {
			return true
		}
	}
	return false
}

type intersectionMatcher struct {
	matchers []types.MethodMatcher
}

func (i *intersectionMatcher) Matches(m types.Method, shape reflect.Type) bool {
	return i.MatchesWithIntroductions(m, shape, false)
}

func (i *intersectionMatcher) MatchesWithIntroductions(m types.Method, shape reflect.Type, hasIntroductions bool) bool {
	for _, mm := range i.matchers {
		if !matchesMethod(mm, m, shape, hasIntroductions) {
			return false
		}
	}
	return true
}

func (i *intersectionMatcher) IsRuntime() bool {
	return anyRuntime(i.matchers)
}

// MatchesArgs only consults runtime members; static members already matched.
func (i *intersectionMatcher) MatchesArgs(m types.Method, shape reflect.Type, args []any) bool {
	for _, mm := range i.matchers {
		if mm.IsRuntime() && !mm.MatchesArgs(m, shape, args) {
			return false
		}
	}
	return true
}

// MatchesMethod applies mm to m, honoring introduction aware matchers.
func MatchesMethod(mm types.MethodMatcher, m types.Method, shape reflect.Type, hasIntroductions bool) bool {
	return matchesMethod(mm, m, shape, hasIntroductions)
}

func matchesMethod(mm types.MethodMatcher, m types.Method, shape reflect.Type, hasIntroductions bool) bool {
	if ia, ok := mm.(types.IntroductionAwareMethodMatcher); ok {
		return ia.MatchesWithIntroductions(m, shape, hasIntroductions)
	}
	return mm.Matches(m, shape)
}

func anyRuntime(matchers []types.MethodMatcher) bool {
	for _, mm := range matchers {
		if mm.IsRuntime() {
			return true
		}
	}
	return false
}
