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

package tx

import (
	"reflect"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/engine"
	"github.com/rulego/weave/pointcut"
)

// AdvisorName is the name of the advisor built by NewAdvisor.
const AdvisorName = "weave.transactionAdvisor"

// SourcePointcut matches the methods source has an attribute for.
func SourcePointcut(source AttributeSource) types.Pointcut {
	return pointcut.New(nil, pointcut.MatcherFunc(func(m types.Method, shape reflect.Type) bool {
		return source.Attribute(m, shape) != nil
	}))
}

// NewAdvisor returns an advisor applying interceptor to the methods its
// source makes transactional.
//
// NewAdvisor 创建事务通知器。
func NewAdvisor(interceptor *Interceptor) *engine.DefaultAdvisor {
	return engine.NewNamedAdvisor(AdvisorName, SourcePointcut(interceptor.Source()), interceptor).
		WithOrder(interceptor.Order())
}
