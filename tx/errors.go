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
	"errors"
	"fmt"
)

var (
	// ErrNoTransaction is returned when a transaction is required by the caller
	// but none is bound to the context.
	ErrNoTransaction = errors.New("no transaction in context")
	// ErrManagerNotFound is returned when a qualifier names no transaction manager.
	ErrManagerNotFound = errors.New("transaction manager not found")
	// ErrInvalidAttribute is returned for malformed transaction attributes.
	ErrInvalidAttribute = errors.New("invalid transaction attribute")
)

// IllegalStateError reports a transaction operation that is not allowed in the
// current state, such as completing a status twice or joining under NEVER.
//
// IllegalStateError 非法的事务状态。
type IllegalStateError struct {
	Msg string
}

func (e *IllegalStateError) Error() string {
	return "illegal transaction state: " + e.Msg
}

func illegalState(format string, args ...any) error {
	return &IllegalStateError{Msg: fmt.Sprintf(format, args...)}
}

// UnexpectedRollbackError is returned by Commit when the transaction was rolled
// back instead because a participant marked it rollback-only.
//
// UnexpectedRollbackError 提交时发现事务已被标记为只回滚。
type UnexpectedRollbackError struct {
	Name string
}

func (e *UnexpectedRollbackError) Error() string {
	if e.Name == "" {
		return "transaction rolled back because it has been marked as rollback-only"
	}
	return fmt.Sprintf("transaction %s rolled back because it has been marked as rollback-only", e.Name)
}

// SystemError is a commit or rollback failure. When the transactional call had
// already failed, Application holds that error: it is superseded by Err but
// stays reachable through errors.Is and errors.As.
//
// SystemError 提交或回滚本身失败，Application 保存被覆盖的业务错误。
type SystemError struct {
	// Op is "commit" or "rollback".
	Op string
	// Err is the failure of the commit or rollback.
	Err error
	// Application is the error returned by the transactional call, if any.
	Application error
}

func (e *SystemError) Error() string {
	if e.Application == nil {
		return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %v (application error superseded: %v)", e.Op, e.Err, e.Application)
}

func (e *SystemError) Unwrap() []error {
	if e.Application == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Application}
}
