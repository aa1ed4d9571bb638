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


package aspect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rulego/weave/engine"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var errOutOfStock = errors.New("out of stock")

type inventory struct {
	mu sync.Mutex
	// calls counts the calls that reached the target.
	calls int
	// failures makes the next n calls of Reserve fail.
	failures int
	// started and release coordinate Hold.
	started chan struct{}
	release chan struct{}
	// spanContext is the span seen by the last Reserve call.
	spanContext trace.SpanContext
}

func newInventory() *inventory {
	return &inventory{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (s *inventory) Reserve(ctx context.Context, sku string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.spanContext = trace.SpanContextFromContext(ctx)
	if s.failures > 0 {
		s.failures--
		return 0, errOutOfStock
	}
	return qty, nil
}

func (s *inventory) Hold(ctx context.Context) error {
	s.started <- struct{}{}
	<-s.release
	return nil
}

func (s *inventory) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *inventory) failNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

// proxyOf builds a proxy of target with aspects applied to every method.
func proxyOf(t *testing.T, target any, aspects ...Interceptor) *engine.Proxy {
	t.Helper()
	cfg := engine.NewProxyConfig(engine.NewSingletonTargetSource(target))
	for _, a := range aspects {
		require.NoError(t, cfg.AddAdvisor(NewAdvisor(nil, a)))
	}
	p, err := cfg.GetProxy()
	require.NoError(t, err)
	return p
}

func reserve(p *engine.Proxy, sku string, qty int) (int, error) {
	return engine.Call[int](context.Background(), p, "Reserve", sku, qty)
}
