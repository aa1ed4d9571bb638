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

package cache

import (
	"reflect"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/engine"
	"github.com/rulego/weave/pointcut"
)

// AdvisorName is the name of the advisor built by NewAdvisor.
const AdvisorName = "weave.cacheAdvisor"

// SourcePointcut matches the methods source has operations for.
func SourcePointcut(source OperationSource) types.Pointcut {
	return pointcut.New(nil, pointcut.MatcherFunc(func(m types.Method, shape reflect.Type) bool {
		return len(source.Operations(m, shape)) > 0
	}))
}

// NewAdvisor returns an advisor applying interceptor to the methods its
// source has cache operations for.
//
// NewAdvisor 创建缓存通知器。
func NewAdvisor(interceptor *Interceptor) *engine.DefaultAdvisor {
	return engine.NewNamedAdvisor(AdvisorName, SourcePointcut(interceptor.Source()), interceptor).
		WithOrder(interceptor.Order())
}
