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

package aspect

import (
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/engine"
	"github.com/rulego/weave/pointcut"
)

// Interceptor is an ordered around advice, every aspect of this package implements it.
//
// Interceptor 带顺序的环绕增强，本包所有切面都实现该接口。
type Interceptor interface {
	types.Interceptor
	types.Aspect
}

// NewAdvisor applies aspect where pc matches. A nil pc matches every method.
// The advisor takes the aspect's order.
//
// NewAdvisor 创建通知器，pc 为 nil 时匹配所有方法。
func NewAdvisor(pc types.Pointcut, aspect Interceptor) *engine.DefaultAdvisor {
	if pc == nil {
		pc = pointcut.True
	}
	return engine.NewAdvisor(pc, aspect).WithOrder(aspect.Order())
}

// methodKey identifies the invoked method of a component shape, e.g. "orderService.Find".
func methodKey(inv types.Invocation) string {
	if name := types.ShortName(inv.TargetType()); name != "" {
		return name + "." + inv.Method().Name
	}
	return inv.Method().Name
}
