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
	"fmt"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/el"
)

// Names bound in every expression besides the named and positional arguments.
const (
	BindTarget = "target"
	BindMethod = "method"
	BindArgs   = "args"
	BindResult = "result"
	BindRoot   = "root"
)

var _ types.Evaluator = (*ExprEvaluator)(nil)

// ExprEvaluator evaluates expr-lang expressions. Compiled programs are cached
// by source text.
//
// ExprEvaluator 基于expr的表达式求值器。
type ExprEvaluator struct {
	programs *xsync.MapOf[string, *el.ExprTemplate]
}

// NewExprEvaluator creates an evaluator with an empty program cache.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{programs: xsync.NewMapOf[string, *el.ExprTemplate]()}
}

// Compile compiles expr ahead of evaluation.
func (e *ExprEvaluator) Compile(expr string) error {
	_, err := e.compile(expr)
	return err
}

// EvaluateCondition implements types.Evaluator. A nil result counts as false.
func (e *ExprEvaluator) EvaluateCondition(expr string, bindings map[string]any) (bool, error) {
	v, err := e.EvaluateKey(expr, bindings)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case nil:
		return false, nil
	default:
		return false, &EvaluationError{Expr: expr, Err: fmt.Errorf("expected bool, got %T", v)}
	}
}

// EvaluateKey implements types.Evaluator.
func (e *ExprEvaluator) EvaluateKey(expr string, bindings map[string]any) (any, error) {
	t, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	v, err := t.Execute(bindings)
	if err != nil {
		return nil, &EvaluationError{Expr: expr, Err: err}
	}
	return v, nil
}

func (e *ExprEvaluator) compile(expr string) (*el.ExprTemplate, error) {
	if t, ok := e.programs.Load(expr); ok {
		return t, nil
	}
	t, err := el.NewExprTemplate(expr)
	if err != nil {
		return nil, &EvaluationError{Expr: expr, Err: err}
	}
	t, _ = e.programs.LoadOrStore(expr, t)
	return t, nil
}

// Bindings builds the variables visible to the expressions of one call:
// target, method, args, p0..pN, a0..aN, the names of argNames and, when
// hasResult is set, result. root holds target, method and args.
func Bindings(target any, m types.Method, args []any, argNames []string, result any, hasResult bool) map[string]any {
	bindings := make(map[string]any, len(args)*2+len(argNames)+5)
	for i, arg := range args {
		idx := strconv.Itoa(i)
		bindings["p"+idx] = arg
		bindings["a"+idx] = arg
	}
	for i, name := range argNames {
		if i < len(args) && name != "" {
			bindings[name] = args[i]
		}
	}
	bindings[BindTarget] = target
	bindings[BindMethod] = m.Name
	bindings[BindArgs] = args
	bindings[BindRoot] = map[string]any{BindTarget: target, BindMethod: m.Name, BindArgs: args}
	if hasResult {
		bindings[BindResult] = result
	}
	return bindings
}
