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

// Package tx provides declarative transaction demarcation for proxied
// components. A transaction Interceptor looks up the Attribute of the invoked
// method, asks a Manager to begin or join a transaction according to the
// propagation behavior, runs the call and commits or rolls back depending on
// the outcome and the attribute's rollback rules.
//
// Transaction state travels with the context.Context handed down the call:
// nested calls made with that context see the current transaction, and a call
// that suspends it (REQUIRES_NEW, NOT_SUPPORTED) simply shadows it in the
// context it passes on.
//
// Package tx 提供声明式事务，事务状态通过 context 在嵌套调用之间传递。
package tx

import (
	"fmt"
	"strings"
	"time"
)

// Propagation defines how a transactional call relates to a transaction that
// is already active in the caller's context.
type Propagation int

const (
	// PropagationRequired joins the current transaction or starts a new one.
	PropagationRequired Propagation = iota
	// PropagationSupports joins the current transaction or runs without one.
	PropagationSupports
	// PropagationMandatory joins the current transaction and fails without one.
	PropagationMandatory
	// PropagationRequiresNew suspends the current transaction and starts a new one.
	PropagationRequiresNew
	// PropagationNotSupported suspends the current transaction and runs without one.
	PropagationNotSupported
	// PropagationNever fails when a transaction is active.
	PropagationNever
	// PropagationNested runs in a savepoint of the current transaction, or
	// behaves like PropagationRequired when there is none.
	PropagationNested
)

var propagationNames = map[Propagation]string{
	PropagationRequired:     "REQUIRED",
	PropagationSupports:     "SUPPORTS",
	PropagationMandatory:    "MANDATORY",
	PropagationRequiresNew:  "REQUIRES_NEW",
	PropagationNotSupported: "NOT_SUPPORTED",
	PropagationNever:        "NEVER",
	PropagationNested:       "NESTED",
}

func (p Propagation) String() string {
	if name, ok := propagationNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Propagation(%d)", int(p))
}

// ParsePropagation parses names such as "REQUIRES_NEW" or "PROPAGATION_REQUIRES_NEW".
func ParsePropagation(s string) (Propagation, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "PROPAGATION_")
	for p, n := range propagationNames {
		if n == name {
			return p, nil
		}
	}
	return PropagationRequired, fmt.Errorf("%w: unknown propagation %q", ErrInvalidAttribute, s)
}

// Isolation is the isolation level requested for a new transaction.
type Isolation int

const (
	// IsolationDefault uses the default level of the underlying store.
	IsolationDefault Isolation = iota
	IsolationReadUncommitted
	IsolationReadCommitted
	IsolationRepeatableRead
	IsolationSerializable
)

var isolationNames = map[Isolation]string{
	IsolationDefault:         "DEFAULT",
	IsolationReadUncommitted: "READ_UNCOMMITTED",
	IsolationReadCommitted:   "READ_COMMITTED",
	IsolationRepeatableRead:  "REPEATABLE_READ",
	IsolationSerializable:    "SERIALIZABLE",
}

func (i Isolation) String() string {
	if name, ok := isolationNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Isolation(%d)", int(i))
}

// ParseIsolation parses names such as "SERIALIZABLE" or "ISOLATION_SERIALIZABLE".
func ParseIsolation(s string) (Isolation, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ISOLATION_")
	for i, n := range isolationNames {
		if n == name {
			return i, nil
		}
	}
	return IsolationDefault, fmt.Errorf("%w: unknown isolation %q", ErrInvalidAttribute, s)
}

// Attribute describes how a method runs transactionally.
//
// Attribute 事务属性：传播行为、隔离级别、超时、只读标记、回滚规则以及事务管理器限定名。
type Attribute struct {
	// Name identifies the transaction, usually the intercepted method.
	Name string
	// Propagation is the propagation behavior, PropagationRequired by default.
	Propagation Propagation
	// Isolation applies to new transactions only.
	Isolation Isolation
	// Timeout applies to new transactions only. Zero means no timeout.
	Timeout time.Duration
	// ReadOnly is a hint passed to the driver for new transactions.
	ReadOnly bool
	// Qualifier selects the transaction manager by registry name.
	Qualifier string
	// RollbackOn decides whether an error rolls the transaction back.
	// nil rolls back on every error.
	RollbackOn func(err error) bool
}

// DefaultAttribute returns an attribute with PropagationRequired that rolls back on any error.
func DefaultAttribute() *Attribute {
	return &Attribute{}
}

// ShouldRollback reports whether err rolls the transaction back.
func (a *Attribute) ShouldRollback(err error) bool {
	if err == nil {
		return false
	}
	if a.RollbackOn == nil {
		return true
	}
	return a.RollbackOn(err)
}

// WithName returns a copy of a named name.
func (a *Attribute) WithName(name string) *Attribute {
	c := *a
	c.Name = name
	return &c
}

func (a *Attribute) String() string {
	var sb strings.Builder
	sb.WriteString("PROPAGATION_")
	sb.WriteString(a.Propagation.String())
	sb.WriteString(",ISOLATION_")
	sb.WriteString(a.Isolation.String())
	if a.Timeout > 0 {
		sb.WriteString(fmt.Sprintf(",timeout_%d", int(a.Timeout/time.Second)))
	}
	if a.ReadOnly {
		sb.WriteString(",readOnly")
	}
	if a.Qualifier != "" {
		sb.WriteString(",@")
		sb.WriteString(a.Qualifier)
	}
	return sb.String()
}
