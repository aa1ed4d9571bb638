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
	"context"
	"errors"
	"fmt"

	"github.com/rulego/weave/api/types"
)

// ErrTransactionTimeout is returned by Commit when a new transaction outlived its timeout.
var ErrTransactionTimeout = errors.New("transaction timeout")

// Driver begins transactions on an underlying resource such as a database.
//
// Driver 事务资源驱动。
type Driver interface {
	// Begin starts a new transaction honoring the isolation level, timeout
	// and read-only hint of attr. ctx carries the timeout deadline.
	Begin(ctx context.Context, attr *Attribute) (Transaction, error)
}

// Transaction is a driver level transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SavepointManager is implemented by driver transactions supporting
// PropagationNested.
type SavepointManager interface {
	CreateSavepoint(ctx context.Context) (any, error)
	RollbackToSavepoint(ctx context.Context, savepoint any) error
	ReleaseSavepoint(ctx context.Context, savepoint any) error
}

// Manager begins, commits and rolls back transactions.
//
// Manager 事务管理器。
type Manager interface {
	// Begin returns a status for a call with attr, starting, joining or
	// suspending a transaction according to the propagation behavior. The
	// returned context carries the transaction and must be used for the call.
	Begin(ctx context.Context, attr *Attribute) (context.Context, *Status, error)
	// Commit completes status. A status marked rollback-only is rolled back.
	Commit(ctx context.Context, status *Status) error
	// Rollback completes status with a rollback.
	Rollback(ctx context.Context, status *Status) error
}

type resourceKey struct {
	driver Driver
}

// Resource returns the transaction of driver bound to ctx.
func Resource(ctx context.Context, driver Driver) (Transaction, bool) {
	res := boundResource(ctx, driver)
	if res == nil {
		return nil, false
	}
	return res.tx, true
}

func boundResource(ctx context.Context, driver Driver) *resource {
	if ctx == nil {
		return nil
	}
	res, _ := ctx.Value(resourceKey{driver: driver}).(*resource)
	return res
}

// bindResource binds res to driver in the returned context. A nil res hides
// the transaction of an outer call.
func bindResource(ctx context.Context, driver Driver, res *resource) context.Context {
	return context.WithValue(ctx, resourceKey{driver: driver}, res)
}

// ManagerOption configures a DriverManager.
type ManagerOption func(*DriverManager)

// WithManagerLogger sets the logger.
func WithManagerLogger(logger types.Logger) ManagerOption {
	return func(m *DriverManager) {
		m.logger = logger
	}
}

// WithGlobalRollbackOnParticipationFailure sets whether a participating call
// that rolls back marks the whole transaction rollback-only. Defaults to true.
func WithGlobalRollbackOnParticipationFailure(global bool) ManagerOption {
	return func(m *DriverManager) {
		m.globalRollbackOnParticipationFailure = global
	}
}

// WithFailEarlyOnGlobalRollbackOnly makes participating commits report an
// UnexpectedRollbackError as soon as the transaction is marked rollback-only.
func WithFailEarlyOnGlobalRollbackOnly(failEarly bool) ManagerOption {
	return func(m *DriverManager) {
		m.failEarlyOnGlobalRollbackOnly = failEarly
	}
}

// WithNestedTransactions sets whether PropagationNested may use savepoints. Defaults to true.
func WithNestedTransactions(allowed bool) ManagerOption {
	return func(m *DriverManager) {
		m.nestedAllowed = allowed
	}
}

// DriverManager implements the propagation behaviors on top of a Driver.
//
// DriverManager 基于 Driver 实现事务传播行为的事务管理器。
type DriverManager struct {
	driver                               Driver
	logger                               types.Logger
	globalRollbackOnParticipationFailure bool
	failEarlyOnGlobalRollbackOnly        bool
	nestedAllowed                        bool
}

var _ Manager = (*DriverManager)(nil)

// NewManager creates a manager over driver.
func NewManager(driver Driver, opts ...ManagerOption) *DriverManager {
	m := &DriverManager{
		driver:                               driver,
		globalRollbackOnParticipationFailure: true,
		nestedAllowed:                        true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = types.NopLogger()
	}
	return m
}

// Driver returns the driver.
func (m *DriverManager) Driver() Driver {
	return m.driver
}

// Begin implements Manager.
func (m *DriverManager) Begin(ctx context.Context, attr *Attribute) (context.Context, *Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if attr == nil {
		attr = DefaultAttribute()
	}
	if attr.Timeout < 0 {
		return ctx, nil, fmt.Errorf("%w: negative timeout %s", ErrInvalidAttribute, attr.Timeout)
	}
	if existing := boundResource(ctx, m.driver); existing != nil {
		return m.handleExisting(ctx, attr, existing)
	}
	switch attr.Propagation {
	case PropagationMandatory:
		return ctx, nil, illegalState("no existing transaction found for transaction marked with propagation MANDATORY")
	case PropagationRequired, PropagationRequiresNew, PropagationNested:
		return m.startTransaction(ctx, attr, nil)
	default:
		// SUPPORTS, NOT_SUPPORTED and NEVER run without a transaction
		return ctx, newStatus(attr, nil, false, nil), nil
	}
}

func (m *DriverManager) handleExisting(ctx context.Context, attr *Attribute, existing *resource) (context.Context, *Status, error) {
	switch attr.Propagation {
	case PropagationNever:
		return ctx, nil, illegalState("existing transaction found for transaction marked with propagation NEVER")
	case PropagationNotSupported:
		m.logger.Printf("suspending current transaction for %s", attr.Name)
		return bindResource(ctx, m.driver, nil), newStatus(attr, nil, false, existing), nil
	case PropagationRequiresNew:
		m.logger.Printf("suspending current transaction, creating new transaction with name [%s]", attr.Name)
		return m.startTransaction(ctx, attr, existing)
	case PropagationNested:
		if !m.nestedAllowed {
			return ctx, nil, illegalState("nested transactions are not allowed by this transaction manager")
		}
		sm, ok := existing.tx.(SavepointManager)
		if !ok {
			return ctx, nil, illegalState("transaction %T does not support savepoints", existing.tx)
		}
		sp, err := sm.CreateSavepoint(ctx)
		if err != nil {
			return ctx, nil, fmt.Errorf("could not create savepoint: %w", err)
		}
		m.logger.Printf("creating nested transaction with name [%s]", attr.Name)
		status := newStatus(attr, existing, false, nil)
		status.savepoint = sp
		return ctx, status, nil
	default:
		// REQUIRED, SUPPORTS and MANDATORY participate
		return ctx, newStatus(attr, existing, false, nil), nil
	}
}

func (m *DriverManager) startTransaction(ctx context.Context, attr *Attribute, suspended *resource) (context.Context, *Status, error) {
	txCtx := ctx
	var cancel context.CancelFunc
	if attr.Timeout > 0 {
		txCtx, cancel = context.WithTimeout(ctx, attr.Timeout)
	}
	t, err := m.driver.Begin(txCtx, attr)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return ctx, nil, fmt.Errorf("could not open transaction: %w", err)
	}
	m.logger.Printf("created new transaction with name [%s]: %s", attr.Name, attr)
	res := &resource{tx: t}
	status := newStatus(attr, res, true, suspended)
	if cancel != nil {
		status.deadline, status.cancel = txCtx, cancel
	}
	return bindResource(txCtx, m.driver, res), status, nil
}

// Commit implements Manager.
func (m *DriverManager) Commit(ctx context.Context, status *Status) error {
	if status == nil {
		return illegalState("no transaction status")
	}
	if status.IsCompleted() {
		return illegalState("transaction is already completed - do not call commit or rollback more than once per transaction")
	}
	if status.rollbackOnly.Load() {
		m.logger.Printf("transactional code has requested rollback of [%s]", status.name)
		return m.processRollback(ctx, status, false)
	}
	if status.IsGlobalRollbackOnly() {
		m.logger.Printf("global transaction [%s] is marked as rollback-only but transactional code requested commit", status.name)
		return m.processRollback(ctx, status, true)
	}
	return m.processCommit(ctx, status)
}

// Rollback implements Manager.
func (m *DriverManager) Rollback(ctx context.Context, status *Status) error {
	if status == nil {
		return illegalState("no transaction status")
	}
	if status.IsCompleted() {
		return illegalState("transaction is already completed - do not call commit or rollback more than once per transaction")
	}
	return m.processRollback(ctx, status, false)
}

func (m *DriverManager) processCommit(ctx context.Context, status *Status) error {
	defer m.cleanup(status)
	switch {
	case status.HasSavepoint():
		if err := status.res.tx.(SavepointManager).ReleaseSavepoint(ctx, status.savepoint); err != nil {
			return fmt.Errorf("could not release savepoint: %w", err)
		}
	case status.IsNewTransaction():
		if status.timedOut() {
			if err := status.res.tx.Rollback(ctx); err != nil {
				m.logger.Printf("rollback of timed out transaction [%s] failed: %v", status.name, err)
			}
			return fmt.Errorf("%w: %s", ErrTransactionTimeout, status.name)
		}
		if err := status.res.tx.Commit(ctx); err != nil {
			return fmt.Errorf("could not commit transaction: %w", err)
		}
		m.logger.Printf("committed transaction [%s]", status.name)
	case status.HasTransaction() && m.failEarlyOnGlobalRollbackOnly && status.IsGlobalRollbackOnly():
		return &UnexpectedRollbackError{Name: status.name}
	}
	return nil
}

func (m *DriverManager) processRollback(ctx context.Context, status *Status, unexpected bool) error {
	defer m.cleanup(status)
	switch {
	case status.HasSavepoint():
		sm := status.res.tx.(SavepointManager)
		if err := sm.RollbackToSavepoint(ctx, status.savepoint); err != nil {
			return fmt.Errorf("could not roll back to savepoint: %w", err)
		}
		if err := sm.ReleaseSavepoint(ctx, status.savepoint); err != nil {
			return fmt.Errorf("could not release savepoint: %w", err)
		}
		m.logger.Printf("rolled back transaction [%s] to savepoint", status.name)
	case status.IsNewTransaction():
		if err := status.res.tx.Rollback(ctx); err != nil {
			return fmt.Errorf("could not roll back transaction: %w", err)
		}
		m.logger.Printf("rolled back transaction [%s]", status.name)
	case status.HasTransaction():
		if status.rollbackOnly.Load() || m.globalRollbackOnParticipationFailure {
			m.logger.Printf("participating transaction [%s] failed - marking existing transaction as rollback-only", status.name)
			status.res.rollbackOnly.Store(true)
		}
	}
	if unexpected && (status.IsNewTransaction() || m.failEarlyOnGlobalRollbackOnly) {
		return &UnexpectedRollbackError{Name: status.name}
	}
	return nil
}

func (m *DriverManager) cleanup(status *Status) {
	status.completed.Store(true)
	if status.cancel != nil {
		status.cancel()
	}
}
