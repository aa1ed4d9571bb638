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
	"sync"
)

// fakeDriver records what the manager asks of it.
type fakeDriver struct {
	mu           sync.Mutex
	events       []string
	begun        int
	failCommit   error
	failRollback error
	lastAttr     *Attribute
	lastCtx      context.Context
}

func (d *fakeDriver) log(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *fakeDriver) Begin(ctx context.Context, attr *Attribute) (Transaction, error) {
	d.mu.Lock()
	d.begun++
	id := d.begun
	d.lastAttr, d.lastCtx = attr, ctx
	d.mu.Unlock()
	d.log("begin tx%d", id)
	return &fakeTx{driver: d, id: id}, nil
}

type fakeTx struct {
	driver     *fakeDriver
	id         int
	savepoints int
}

func (t *fakeTx) Commit(context.Context) error {
	if t.driver.failCommit != nil {
		return t.driver.failCommit
	}
	t.driver.log("commit tx%d", t.id)
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.driver.failRollback != nil {
		return t.driver.failRollback
	}
	t.driver.log("rollback tx%d", t.id)
	return nil
}

func (t *fakeTx) CreateSavepoint(context.Context) (any, error) {
	t.savepoints++
	name := fmt.Sprintf("tx%d.%d", t.id, t.savepoints)
	t.driver.log("savepoint %s", name)
	return name, nil
}

func (t *fakeTx) RollbackToSavepoint(_ context.Context, sp any) error {
	t.driver.log("rollback to %s", sp)
	return nil
}

func (t *fakeTx) ReleaseSavepoint(_ context.Context, sp any) error {
	t.driver.log("release %s", sp)
	return nil
}

// plainDriver begins transactions without savepoint support.
type plainDriver struct {
	fakeDriver
}

type plainTx struct {
	Transaction
}

func (d *plainDriver) Begin(ctx context.Context, attr *Attribute) (Transaction, error) {
	t, err := d.fakeDriver.Begin(ctx, attr)
	return plainTx{Transaction: t}, err
}

var (
	errNotFound = errors.New("not found")
	errBusiness = errors.New("insufficient funds")
)

type conflictError struct {
	cause error
}

func (e *conflictError) Error() string { return "conflict" }

func (e *conflictError) Unwrap() error { return e.cause }

type runtimeError struct{}

func (runtimeError) Error() string { return "runtime failure" }

func propagating(p Propagation) *Attribute {
	a := DefaultAttribute()
	a.Propagation = p
	return a
}
