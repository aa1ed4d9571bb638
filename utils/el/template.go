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

// Package el compiles the expressions attached to cache operations.
// Expressions use expr-lang syntax, arguments may be referenced as #name and
// a whole expression may be wrapped as ${...}.
//
// Package el 表达式编译与执行，语法为expr-lang，参数支持 #name 引用。
package el

import (
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// closure variables of expr-lang keep their # prefix
var reserved = map[string]bool{"index": true, "acc": true}

// 定义正则表达式，用于匹配形如 ${...} 的占位符
var re = regexp.MustCompile(`\$\{([^}]*)\}`)

// ExprTemplate is a compiled expression.
type ExprTemplate struct {
	Tmpl    string
	Program *vm.Program
}

// NewExprTemplate normalizes and compiles tmpl. Undefined variables evaluate to nil.
func NewExprTemplate(tmpl string) (*ExprTemplate, error) {
	t := &ExprTemplate{Tmpl: Normalize(tmpl)}
	if err := t.Parse(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ExprTemplate) Parse() error {
	if program, err := expr.Compile(t.Tmpl, expr.AllowUndefinedVariables()); err != nil {
		return err
	} else {
		t.Program = program
	}
	return nil
}

// Execute runs the expression against data. It is safe for concurrent use.
func (t *ExprTemplate) Execute(data map[string]any) (interface{}, error) {
	if t.Program != nil {
		return expr.Run(t.Program, data)
	}
	return nil, nil
}

// ExecuteFn runs the expression against the data returned by loadDataFunc.
func (t *ExprTemplate) ExecuteFn(loadDataFunc func() map[string]any) (interface{}, error) {
	var data map[string]any
	if loadDataFunc != nil {
		data = loadDataFunc()
	}
	return t.Execute(data)
}

// Normalize rewrites #name references to name and unwraps ${...}
// placeholders. Text inside quotes is left untouched.
func Normalize(tmpl string) string {
	var sb strings.Builder
	var quote byte // 当前所在引号，0表示不在引号内

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case quote != 0:
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(tmpl) {
				// 处理转义字符
				i++
				sb.WriteByte(tmpl[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
			sb.WriteByte(c)
		case c == '$' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			if loc := re.FindStringIndex(tmpl[i:]); loc != nil && loc[0] == 0 {
				// ${x} 替换为 x
				sb.WriteString(Normalize(tmpl[i+2 : i+loc[1]-1]))
				i += loc[1] - 1
				continue
			}
			sb.WriteByte(c)
		case c == '#' && i+1 < len(tmpl) && isIdentStart(tmpl[i+1]):
			end := i + 1
			for end < len(tmpl) && isIdentPart(tmpl[end]) {
				end++
			}
			if reserved[tmpl[i+1:end]] {
				sb.WriteByte(c)
				continue
			}
			// 去掉 # 前缀
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// IsVar reports whether tmpl is a single variable reference such as #id or ${id}.
func IsVar(tmpl string) bool {
	v := strings.TrimSpace(Normalize(strings.TrimSpace(tmpl)))
	if v == "" || !isIdentStart(v[0]) {
		return false
	}
	for i := 1; i < len(v); i++ {
		if !isIdentPart(v[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
