/*
 * Copyright 2023 The RuleGo Authors.
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

// Package runtime provides helpers around the call stack of the current goroutine.
//
// Stack returns a formatted stack trace used when a recovered panic is turned
// into an error. Callers returns the fully qualified function names on the
// stack, which control flow pointcuts match against.
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// initialDepth is the first capture size, Callers grows it until the stack fits.
const initialDepth = 64

// Stack 获取堆栈信息
func Stack() string {
	var pc = make([]uintptr, 20)
	n := runtime.Callers(3, pc)

	var build strings.Builder
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s:%d \n", frame.File, frame.Line))
		if !more {
			break
		}
	}
	return build.String()
}

// Callers returns the function names on the stack of the calling goroutine,
// innermost first. skip counts frames above the caller of Callers.
// Names look like "github.com/acme/orders.(*Service).Place".
func Callers(skip int) []string {
	pc := make([]uintptr, initialDepth)
	n := runtime.Callers(skip+2, pc)
	for n == len(pc) {
		pc = make([]uintptr, len(pc)*2)
		n = runtime.Callers(skip+2, pc)
	}
	names := make([]string, 0, n)
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			names = append(names, frame.Function)
		}
		if !more {
			break
		}
	}
	return names
}
