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

package types

import (
	"errors"
	"fmt"

	"github.com/rulego/weave/utils/runtime"
)

var (
	// ErrConfigFrozen is returned when a frozen proxy configuration is mutated.
	ErrConfigFrozen = errors.New("proxy configuration is frozen")
	// ErrMethodNotExposed is returned when a proxy is asked for an operation outside its exposed set.
	ErrMethodNotExposed = errors.New("method not exposed by proxy")
	// ErrUnknownAdviceType is returned when no adapter can turn an advice into an interceptor.
	ErrUnknownAdviceType = errors.New("unknown advice type")
	// ErrComponentNotFound is returned by registries for unknown names.
	ErrComponentNotFound = errors.New("component not found")
	// ErrComponentExists is returned when a name is registered twice.
	ErrComponentExists = errors.New("component already exists")
	// ErrNotProxy is returned when a proxy was expected.
	ErrNotProxy = errors.New("not a proxy")
	// ErrArgumentMismatch is returned when call arguments do not fit the method signature.
	ErrArgumentMismatch = errors.New("argument mismatch")
	// ErrNoTargetType is returned when a proxy cannot determine the target shape.
	ErrNoTargetType = errors.New("target type not determinable")
	// ErrConcurrencyLimitReached is returned by the concurrency limiter aspect.
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
	// ErrFallback is returned while the skip-fallback aspect keeps a method open.
	ErrFallback = errors.New("skip fallback: too many errors")
)

// PanicError carries a panic recovered while running an intercepted call.
//
// PanicError 调用过程中捕获的 panic。
type PanicError struct {
	Value any
	Stack string
}

// NewPanicError wraps a recovered value together with the current stack.
func NewPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: runtime.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
