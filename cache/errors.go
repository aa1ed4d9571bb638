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

// Package cache implements declarative method caching on top of the engine.
// Operations describe which caches a method reads, populates or evicts, keys
// and conditions are expressions evaluated against the call.
//
// Package cache 声明式方法缓存切面。
package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation is returned for malformed cache operations.
	ErrInvalidOperation = errors.New("invalid cache operation")
	// ErrNoCacheResolver is returned when an operation has no way to resolve its caches.
	ErrNoCacheResolver = errors.New("no cache resolver")
	// ErrCacheNotFound is returned when a cache name cannot be resolved.
	ErrCacheNotFound = errors.New("cache not found")
)

// EvaluationError reports a key, condition or unless expression that failed.
type EvaluationError struct {
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate expression %q: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
