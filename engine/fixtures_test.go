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

package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/rulego/weave/api/types"
)

type OrderService interface {
	Place(ctx context.Context, id int) (string, error)
	Cancel(id int) error
}

type Auditable interface {
	AuditTrail() []string
}

type orderService struct {
	mu     sync.Mutex
	placed []int
	calls  int
}

var errNegativeID = errors.New("negative id")

func (s *orderService) Place(ctx context.Context, id int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if id < 0 {
		return "", errNegativeID
	}
	s.placed = append(s.placed, id)
	return fmt.Sprintf("order-%d", id), nil
}

func (s *orderService) Cancel(id int) error {
	return nil
}

func (s *orderService) Internal() string {
	return "internal"
}

func (s *orderService) Explode() {
	panic("boom")
}

// PlaceTwice calls Place through the current proxy when one is exposed.
func (s *orderService) PlaceTwice(ctx context.Context, id int) (int, error) {
	p, ok := CurrentProxy(ctx)
	if !ok {
		return 0, errors.New("no current proxy")
	}
	if _, err := p.Invoke(ctx, "Place", id); err != nil {
		return 0, err
	}
	if _, err := p.Invoke(ctx, "Place", id+1); err != nil {
		return 0, err
	}
	return 2, nil
}

type orderServiceProxy struct {
	p *Proxy
}

func (s orderServiceProxy) Place(ctx context.Context, id int) (string, error) {
	return Call[string](ctx, s.p, "Place", id)
}

func (s orderServiceProxy) Cancel(id int) error {
	return Exec(context.Background(), s.p, "Cancel", id)
}

var (
	orderServiceType = types.TypeOf[OrderService]()
	auditableType    = types.TypeOf[Auditable]()
	orderShape       = reflect.TypeOf(&orderService{})
)

func init() {
	RegisterAdapter[OrderService](nil, func(p *Proxy) OrderService { return orderServiceProxy{p: p} })
}

// recorder collects the order in which interceptors enter and leave.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type recordingInterceptor struct {
	name  string
	order int
	rec   *recorder
}

func (i *recordingInterceptor) Order() int { return i.order }

func (i *recordingInterceptor) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	i.rec.add(i.name + ">")
	results, err := inv.Proceed(ctx)
	i.rec.add("<" + i.name)
	return results, err
}

// loggingInterceptor records "enter X" and "exit X" around each call.
type loggingInterceptor struct {
	rec *recorder
}

func (l *loggingInterceptor) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	l.rec.add("enter " + inv.Method().Name)
	results, err := inv.Proceed(ctx)
	l.rec.add("exit " + inv.Method().Name)
	return results, err
}

type auditTrail struct {
	entries []string
}

func (a *auditTrail) AuditTrail() []string {
	return a.entries
}
