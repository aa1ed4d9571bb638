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

import "reflect"

// ClassFilter decides whether a component shape is eligible for interception.
//
// ClassFilter 判断组件类型是否可以被拦截。
type ClassFilter interface {
	Matches(shape reflect.Type) bool
}

// MethodMatcher decides whether an operation of a shape is eligible.
// A static matcher answers with Matches alone. A runtime matcher
// (IsRuntime returns true) is asked again with MatchesArgs on every call,
// after Matches accepted it.
//
// MethodMatcher 判断类型的某个操作是否可以被拦截。
// 动态匹配器(IsRuntime 返回 true)在每次调用时还会通过 MatchesArgs 再次判断。
type MethodMatcher interface {
	Matches(m Method, shape reflect.Type) bool
	IsRuntime() bool
	MatchesArgs(m Method, shape reflect.Type, args []any) bool
}

// IntroductionAwareMethodMatcher is a MethodMatcher that needs to know whether
// the advisor set contains introductions.
type IntroductionAwareMethodMatcher interface {
	MethodMatcher
	MatchesWithIntroductions(m Method, shape reflect.Type, hasIntroductions bool) bool
}

// Pointcut pairs a ClassFilter with a MethodMatcher.
//
// Pointcut 切入点，由类型过滤器和方法匹配器组成。
type Pointcut interface {
	ClassFilter() ClassFilter
	MethodMatcher() MethodMatcher
}
