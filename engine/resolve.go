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
	"reflect"
	"sort"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
)

// CanApply reports whether pc could match any operation of shape. The class
// filter must accept shape and the method matcher must accept at least one
// method declared by shape or by one of its capability interfaces. Runtime
// matchers are only asked their static half here.
func CanApply(pc types.Pointcut, shape reflect.Type, hasIntroductions bool, capabilities ...reflect.Type) bool {
	if pc == nil {
		return true
	}
	if !pc.ClassFilter().Matches(shape) {
		return false
	}
	mm := pc.MethodMatcher()
	if mm == pointcut.TrueMethodMatcher {
		return true
	}
	for _, t := range append([]reflect.Type{shape}, capabilities...) {
		for _, m := range types.MethodsOf(t) {
			if pointcut.MatchesMethod(mm, m, shape, hasIntroductions) {
				return true
			}
		}
	}
	return false
}

// CanApplyAdvisor reports whether advisor applies to shape. Introduction
// advisors are decided by their class filter alone, advisors without a
// pointcut apply everywhere.
func CanApplyAdvisor(advisor types.Advisor, shape reflect.Type, hasIntroductions bool, capabilities ...reflect.Type) bool {
	switch a := advisor.(type) {
	case types.IntroductionAdvisor:
		return a.ClassFilter().Matches(shape)
	case types.PointcutAdvisor:
		return CanApply(a.Pointcut(), shape, hasIntroductions, capabilities...)
	default:
		return true
	}
}

// ResolveApplicableAdvisors returns the candidates that apply to shape,
// preserving candidate order. Introduction advisors are decided first so the
// remaining advisors know whether introductions are present.
//
// ResolveApplicableAdvisors 返回适用于该类型的通知器，保持原有顺序。
func ResolveApplicableAdvisors(candidates []types.Advisor, shape reflect.Type, capabilities ...reflect.Type) []types.Advisor {
	if len(candidates) == 0 {
		return nil
	}
	eligible := make([]bool, len(candidates))
	hasIntroductions := false
	for i, candidate := range candidates {
		if ia, ok := candidate.(types.IntroductionAdvisor); ok && ia.ClassFilter().Matches(shape) {
			eligible[i] = true
			hasIntroductions = true
		}
	}
	for i, candidate := range candidates {
		if _, ok := candidate.(types.IntroductionAdvisor); ok {
			continue
		}
		eligible[i] = CanApplyAdvisor(candidate, shape, hasIntroductions, capabilities...)
	}
	var applicable []types.Advisor
	for i, candidate := range candidates {
		if eligible[i] {
			applicable = append(applicable, candidate)
		}
	}
	return applicable
}

// SortAdvisors orders advisors by Order, keeping registration order for ties.
func SortAdvisors(advisors []types.Advisor) {
	sort.SliceStable(advisors, func(i, j int) bool {
		return advisors[i].Order() < advisors[j].Order()
	})
}
