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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/weave/api/types"
)

var _ types.Pointcut = (*ExpressionPointcut)(nil)

// ExpressionEnv is the environment an expression pointcut is evaluated against.
type ExpressionEnv struct {
	// Type is the full shape name, e.g. "*orders.Service".
	Type string `expr:"typeName"`
	// Package is the import path declaring the shape.
	Package string `expr:"pkg"`
	// Name is the unqualified shape name, e.g. "Service".
	Name string `expr:"name"`
	// Method is the method name. It is empty while only the shape is checked.
	Method string `expr:"method"`
	// NumArgs is the number of caller supplied arguments.
	NumArgs int `expr:"numArgs"`
	// Declaring is the full name of the type declaring the method.
	Declaring string `expr:"declaring"`
}

// ExpressionPointcut is a static pointcut written in expr-lang, for example
//
//	pkg endsWith "/orders" && method startsWith "Place"
//
type ExpressionPointcut struct {
	source      string
	program     *vm.Program
	methodLevel bool
}

// Expression compiles source into a pointcut.
func Expression(source string) (*ExpressionPointcut, error) {
	program, err := expr.Compile(source, expr.Env(ExpressionEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile pointcut expression %q: %w", source, err)
	}
	methodLevel := false
	for _, ident := range []string{"method", "numArgs", "declaring"} {
		if containsIdent(source, ident) {
			methodLevel = true
		}
	}
	return &ExpressionPointcut{source: source, program: program, methodLevel: methodLevel}, nil
}

// MustExpression is like Expression but panics on a compile error.
func MustExpression(source string) *ExpressionPointcut {
	pc, err := Expression(source)
	if err != nil {
		panic(err)
	}
	return pc
}

// ClassFilter evaluates the expression against the shape alone. Expressions
// that mention method level fields accept every shape and leave the decision
// to the method matcher, which evaluates the whole expression.
func (p *ExpressionPointcut) ClassFilter() types.ClassFilter {
	if p.methodLevel {
		return TrueClassFilter
	}
	return ClassFilterFunc(func(shape reflect.Type) bool {
		return p.eval(envOf(shape, types.Method{}))
	})
}

// MethodMatcher evaluates the expression per method.
func (p *ExpressionPointcut) MethodMatcher() types.MethodMatcher {
	return MatcherFunc(func(m types.Method, shape reflect.Type) bool {
		return p.eval(envOf(shape, m))
	})
}

func (p *ExpressionPointcut) String() string {
	return p.source
}

func (p *ExpressionPointcut) eval(env ExpressionEnv) bool {
	out, err := expr.Run(p.program, env)
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}

func envOf(shape reflect.Type, m types.Method) ExpressionEnv {
	env := ExpressionEnv{
		Type:    types.TypeName(shape),
		Package: types.PackagePath(shape),
		Name:    types.ShortName(shape),
		Method:  m.Name,
		NumArgs: m.NumArgs(),
	}
	if m.DeclaringType != nil {
		env.Declaring = types.TypeName(m.DeclaringType)
	}
	return env
}

func containsIdent(src, ident string) bool {
	for i := 0; i+len(ident) <= len(src); i++ {
		if src[i:i+len(ident)] != ident {
			continue
		}
		before := i == 0 || !isIdentChar(src[i-1])
		after := i+len(ident) == len(src) || !isIdentChar(src[i+len(ident)])
		if before && after {
			return true
		}
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
