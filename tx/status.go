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
	"sync/atomic"

	"github.com/gofrs/uuid/v5"
)

// resource is the transaction of one driver bound to a context, shared by
// every status that participates in it.
type resource struct {
	tx           Transaction
	rollbackOnly atomic.Bool
}

// Status is the state of one transactional call: either a new transaction,
// a participation in an existing one, a savepoint, or no transaction at all.
//
// Status 事务状态。
type Status struct {
	id             string
	name           string
	res            *resource
	newTransaction bool
	savepoint      any
	suspended      *resource
	readOnly       bool
	rollbackOnly   atomic.Bool
	completed      atomic.Bool
	deadline       context.Context
	cancel         context.CancelFunc
}

func newStatus(attr *Attribute, res *resource, newTransaction bool, suspended *resource) *Status {
	return &Status{
		id:             uuid.Must(uuid.NewV4()).String(),
		name:           attr.Name,
		res:            res,
		newTransaction: newTransaction,
		suspended:      suspended,
		readOnly:       attr.ReadOnly,
	}
}

// ID returns a unique id of the status.
func (s *Status) ID() string { return s.id }

// Name returns the transaction name taken from the attribute.
func (s *Status) Name() string { return s.name }

// HasTransaction reports whether the call runs inside a transaction.
func (s *Status) HasTransaction() bool { return s.res != nil }

// IsNewTransaction reports whether this call started the transaction and so
// is the one to commit or roll it back.
func (s *Status) IsNewTransaction() bool { return s.res != nil && s.newTransaction }

// HasSavepoint reports whether the call runs in a nested savepoint.
func (s *Status) HasSavepoint() bool { return s.savepoint != nil }

// HasSuspended reports whether an outer transaction was suspended for this call.
func (s *Status) HasSuspended() bool { return s.suspended != nil }

// IsReadOnly reports whether the read-only hint was requested.
func (s *Status) IsReadOnly() bool { return s.readOnly }

// Transaction returns the driver transaction, nil without one.
func (s *Status) Transaction() Transaction {
	if s.res == nil {
		return nil
	}
	return s.res.tx
}

// SetRollbackOnly makes the eventual outcome of this call a rollback.
func (s *Status) SetRollbackOnly() { s.rollbackOnly.Store(true) }

// IsRollbackOnly reports whether this call or any participant of the same
// transaction asked for a rollback.
func (s *Status) IsRollbackOnly() bool {
	return s.rollbackOnly.Load() || s.IsGlobalRollbackOnly()
}

// IsGlobalRollbackOnly reports whether the shared transaction is marked rollback-only.
func (s *Status) IsGlobalRollbackOnly() bool {
	return s.res != nil && s.res.rollbackOnly.Load()
}

// IsCompleted reports whether the status was committed or rolled back.
func (s *Status) IsCompleted() bool { return s.completed.Load() }

func (s *Status) timedOut() bool {
	return s.deadline != nil && s.deadline.Err() == context.DeadlineExceeded
}
