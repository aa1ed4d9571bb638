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
)

type infoKey struct{}

// Info is one node of the transaction stack carried by a context: the
// transactional call currently running and the call it is nested in.
//
// Info 事务信息栈节点。
type Info struct {
	// Manager is the manager that began Status.
	Manager Manager
	// Attribute is the attribute of the call.
	Attribute *Attribute
	// JoinPoint names the intercepted method.
	JoinPoint string
	// Status is the status of the call.
	Status *Status

	prev   *Info
	closed atomic.Bool
}

// Previous returns the enclosing transactional call, nil at the bottom.
func (i *Info) Previous() *Info {
	return live(i.prev)
}

// HasTransaction reports whether the call runs inside a transaction.
func (i *Info) HasTransaction() bool {
	return i.Status != nil && i.Status.HasTransaction()
}

// push returns a context with i on top of the stack of ctx.
func push(ctx context.Context, i *Info) context.Context {
	i.prev = CurrentInfo(ctx)
	return context.WithValue(ctx, infoKey{}, i)
}

// pop closes i. Contexts that still hold i, e.g. captured by a goroutine,
// see the enclosing call from now on.
func (i *Info) pop() {
	i.closed.Store(true)
}

func live(i *Info) *Info {
	for i != nil && i.closed.Load() {
		i = i.prev
	}
	return i
}

// CurrentInfo returns the innermost running transactional call of ctx.
func CurrentInfo(ctx context.Context) *Info {
	if ctx == nil {
		return nil
	}
	i, _ := ctx.Value(infoKey{}).(*Info)
	return live(i)
}

// CurrentStatus returns the status of the innermost running transactional
// call, so transactional code can call SetRollbackOnly.
//
// CurrentStatus 获取当前事务状态。
func CurrentStatus(ctx context.Context) (*Status, error) {
	i := CurrentInfo(ctx)
	if i == nil || i.Status == nil {
		return nil, ErrNoTransaction
	}
	return i.Status, nil
}

// IsActive reports whether ctx runs inside an actual transaction.
func IsActive(ctx context.Context) bool {
	i := CurrentInfo(ctx)
	return i != nil && i.HasTransaction()
}
