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
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/runtime"
)

var (
	_ types.Pointcut      = (*ControlFlow)(nil)
	_ types.MethodMatcher = (*ControlFlow)(nil)
)

// ControlFlow matches calls made, directly or indirectly, from within a method
// of a given caller type. It is a runtime matcher: the call stack is inspected
// on every invocation, so it is considerably slower than a static pointcut.
//
// ControlFlow 控制流切入点，仅当调用来自指定类型(或其指定方法)时匹配。
type ControlFlow struct {
	caller      reflect.Type
	method      string
	prefixes    []string
	evaluations atomic.Int64
}

// NewControlFlow matches calls whose stack contains any method of caller.
func NewControlFlow(caller reflect.Type) *ControlFlow {
	return NewControlFlowMethod(caller, "")
}

// NewControlFlowMethod matches calls whose stack contains caller.method.
// An empty method matches any method of caller.
func NewControlFlowMethod(caller reflect.Type, method string) *ControlFlow {
	base := caller
	for base != nil && base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	cf := &ControlFlow{caller: caller, method: method}
	if base != nil {
		name := base.Name()
		pkg := base.PkgPath()
		cf.prefixes = []string{
			pkg + ".(*" + name + ").",
			pkg + "." + name + ".",
			pkg + ".(*" + name + "[",
			pkg + "." + name + "[",
		}
	}
	return cf
}

// ClassFilter accepts every shape.
func (cf *ControlFlow) ClassFilter() types.ClassFilter { return TrueClassFilter }

// MethodMatcher returns itself.
func (cf *ControlFlow) MethodMatcher() types.MethodMatcher { return cf }

// Matches accepts every method, the decision is made per call.
func (cf *ControlFlow) Matches(m types.Method, shape reflect.Type) bool { return true }

// IsRuntime returns true.
func (cf *ControlFlow) IsRuntime() bool { return true }

// MatchesArgs walks the current call stack.
func (cf *ControlFlow) MatchesArgs(m types.Method, shape reflect.Type, args []any) bool {
	cf.evaluations.Add(1)
	for _, fn := range runtime.Callers(1) {
		if cf.under(fn) {
			return true
		}
	}
	return false
}

// EvaluationCount returns how many times the stack has been inspected.
func (cf *ControlFlow) EvaluationCount() int64 {
	return cf.evaluations.Load()
}

func (cf *ControlFlow) String() string {
	return fmt.Sprintf("ControlFlow for %s.%s", types.TypeName(cf.caller), cf.method)
}

func (cf *ControlFlow) under(fn string) bool {
	for _, prefix := range cf.prefixes {
		if !strings.HasPrefix(fn, prefix) {
			continue
		}
		rest := fn[len(prefix):]
		if strings.HasSuffix(prefix, "[") {
			// generic receiver: skip the type arguments
			i := strings.Index(rest, "]")
			if i < 0 {
				continue
			}
			rest = strings.TrimPrefix(rest[i+1:], ")")
			rest = strings.TrimPrefix(rest, ".")
		}
		if cf.method == "" {
			return true
		}
		if rest == cf.method || strings.HasPrefix(rest, cf.method+".") || rest == cf.method+"-fm" {
			return true
		}
	}
	return false
}
