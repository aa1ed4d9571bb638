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
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
	"github.com/stretchr/testify/assert"
)

func newCreator(t *testing.T, registry types.ComponentRegistry, opts []types.Option, creatorOpts ...CreatorOption) *AutoProxyCreator {
	opts = append([]types.Option{types.WithLogger(types.NopLogger())}, opts...)
	c, err := NewAutoProxyCreator(registry, types.NewConfig(opts...), creatorOpts...)
	assert.Nil(t, err)
	return c
}

func TestWrapIfNecessary(t *testing.T) {
	rec := &recorder{}
	c := newCreator(t, nil, nil, WithAdvisors(NewAdvisor(pointcut.ForType(orderServiceType), &loggingInterceptor{rec: rec})))

	target := &orderService{}
	wrapped, err := c.WrapIfNecessary(target, "orders")
	assert.Nil(t, err)
	p, ok := wrapped.(*Proxy)
	assert.True(t, ok)
	again, err := c.WrapIfNecessary(target, "orders")
	assert.Nil(t, err)
	assert.Same(t, p, again)

	// a proxy is never wrapped again
	same, err := c.WrapIfNecessary(p, "orders")
	assert.Nil(t, err)
	assert.Same(t, p, same)

	advised, decided := c.IsAdvised(orderShape, "orders")
	assert.True(t, advised)
	assert.True(t, decided)

	_, err = p.Invoke(context.Background(), "Place", 1)
	assert.Nil(t, err)
	assert.Equal(t, []string{"enter Place", "exit Place"}, rec.list())
}

func TestWrapIfNecessaryConcurrent(t *testing.T) {
	c := newCreator(t, nil, nil, WithAdvisors(NewAdvisor(nil, &loggingInterceptor{rec: &recorder{}})))
	target := &orderService{}

	var wg sync.WaitGroup
	results := make([]any, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.WrapIfNecessary(target, "orders")
		}(i)
	}
	wg.Wait()
	first, ok := results[0].(*Proxy)
	assert.True(t, ok)
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestWrapIfNecessaryAnonymous(t *testing.T) {
	c := newCreator(t, nil, nil, WithAdvisors(NewAdvisor(nil, &loggingInterceptor{rec: &recorder{}})))
	a, b := &orderService{}, &orderService{}
	pa, err := c.WrapIfNecessary(a, "")
	assert.Nil(t, err)
	pb, err := c.WrapIfNecessary(b, "")
	assert.Nil(t, err)
	assert.NotSame(t, pa, pb)
	again, _ := c.WrapIfNecessary(a, "")
	assert.Same(t, pa, again)

	// values carry no identity, each one gets its own proxy
	alice, err := c.WrapIfNecessary(greeter{name: "alice"}, "")
	assert.Nil(t, err)
	bob, err := c.WrapIfNecessary(greeter{name: "bob"}, "")
	assert.Nil(t, err)
	assert.NotSame(t, alice, bob)
	got, err := Call[string](context.Background(), bob.(*Proxy), "Greet")
	assert.Nil(t, err)
	assert.Equal(t, "hello bob", got)
	got, err = Call[string](context.Background(), alice.(*Proxy), "Greet")
	assert.Nil(t, err)
	assert.Equal(t, "hello alice", got)
	_, decided := c.IsAdvised(reflect.TypeOf(greeter{}), "")
	assert.False(t, decided)
}

type greeter struct {
	name string
}

func (g greeter) Greet() string {
	return "hello " + g.name
}

func TestWrapIfNecessaryUnadvised(t *testing.T) {
	c := newCreator(t, nil, nil, WithAdvisors(NewAdvisor(pointcut.ForType(auditableType), &loggingInterceptor{rec: &recorder{}})))
	target := &orderService{}
	result, err := c.WrapIfNecessary(target, "orders")
	assert.Nil(t, err)
	assert.Same(t, target, result)
	advised, decided := c.IsAdvised(orderShape, "orders")
	assert.False(t, advised)
	assert.True(t, decided)

	// decisions are not revisited when advisors are added later
	assert.Nil(t, c.AddAdvisor(NewAdvisor(nil, &loggingInterceptor{rec: &recorder{}})))
	result, err = c.WrapIfNecessary(target, "orders")
	assert.Nil(t, err)
	assert.Same(t, target, result)

	// a new identity sees the new advisor
	result, err = c.WrapIfNecessary(target, "orders2")
	assert.Nil(t, err)
	assert.True(t, IsProxy(result))
}

func TestWrapIfNecessaryInfrastructure(t *testing.T) {
	c := newCreator(t, nil, nil, WithAdvisors(NewAdvisor(nil, &loggingInterceptor{rec: &recorder{}})))
	interceptor := &recordingInterceptor{name: "x"}
	result, err := c.WrapIfNecessary(interceptor, "interceptor")
	assert.Nil(t, err)
	assert.Same(t, interceptor, result)

	result, err = c.WrapIfNecessary(c, "creator")
	assert.Nil(t, err)
	assert.Same(t, c, result)

	container := NewContainer()
	svc := &orderService{}
	assert.Nil(t, container.RegisterInfrastructure("infra", svc))
	c2 := newCreator(t, container, nil, WithAdvisors(NewAdvisor(nil, &loggingInterceptor{rec: &recorder{}})))
	result, err = c2.WrapIfNecessary(svc, "infra")
	assert.Nil(t, err)
	assert.Same(t, svc, result)
}

func TestCommonInterceptors(t *testing.T) {
	run := func(first bool) []string {
		rec := &recorder{}
		container := NewContainer()
		assert.Nil(t, container.RegisterInstance("common", &recordingInterceptor{name: "common", rec: rec}))
		c := newCreator(t, container,
			[]types.Option{types.WithCommonInterceptors("common"), types.WithApplyCommonInterceptorsFirst(first)},
			WithAdvisors(NewAdvisor(nil, &recordingInterceptor{name: "specific", rec: rec})))
		wrapped, err := c.WrapIfNecessary(&orderService{}, "orders")
		assert.Nil(t, err)
		_, err = wrapped.(*Proxy).Invoke(context.Background(), "Cancel", 1)
		assert.Nil(t, err)
		return rec.list()
	}
	assert.Equal(t, []string{"common>", "specific>", "<specific", "<common"}, run(true))
	assert.Equal(t, []string{"specific>", "common>", "<common", "<specific"}, run(false))

	_, err := NewAutoProxyCreator(NewContainer(), types.NewConfig(types.WithCommonInterceptors("missing"), types.WithLogger(types.NopLogger())))
	assert.True(t, errors.Is(err, types.ErrComponentNotFound))

	container := NewContainer()
	assert.Nil(t, container.RegisterInstance("notAdvice", "plain value"))
	_, err = NewAutoProxyCreator(container, types.NewConfig(types.WithCommonInterceptors("notAdvice"), types.WithLogger(types.NopLogger())))
	assert.True(t, errors.Is(err, types.ErrUnknownAdviceType))
}

func TestAdvisorNamePrefix(t *testing.T) {
	rec := &recorder{}
	tx := NewNamedAdvisor("tx.orders", nil, &recordingInterceptor{name: "tx", rec: rec})
	other := NewNamedAdvisor("cache.orders", nil, &recordingInterceptor{name: "cache", rec: rec})
	unnamed := NewAdvisor(nil, &recordingInterceptor{name: "unnamed", rec: rec})
	c := newCreator(t, nil, []types.Option{types.WithAdvisorNamePrefix("tx.")}, WithAdvisors(tx, other, unnamed))

	assert.Equal(t, 3, len(c.Advisors()))
	assert.Equal(t, []types.Advisor{tx}, c.CandidateAdvisors())

	wrapped, err := c.WrapIfNecessary(&orderService{}, "orders")
	assert.Nil(t, err)
	_, err = wrapped.(*Proxy).Invoke(context.Background(), "Cancel", 1)
	assert.Nil(t, err)
	assert.Equal(t, []string{"tx>", "<tx"}, rec.list())
}

func TestAdvisorsSortedByOrder(t *testing.T) {
	rec := &recorder{}
	late := NewAdvisor(nil, &recordingInterceptor{name: "late", order: 10, rec: rec})
	early := NewAdvisor(nil, &recordingInterceptor{name: "early", order: 1, rec: rec})
	c := newCreator(t, nil, nil, WithAdvisors(late, early))
	wrapped, err := c.WrapIfNecessary(&orderService{}, "orders")
	assert.Nil(t, err)
	_, err = wrapped.(*Proxy).Invoke(context.Background(), "Cancel", 1)
	assert.Nil(t, err)
	assert.Equal(t, []string{"early>", "late>", "<late", "<early"}, rec.list())
}

func TestContainerAutoProxy(t *testing.T) {
	rec := &recorder{}
	container := NewContainer()
	assert.Nil(t, container.Register(Definition{
		Name:         "orders",
		Shape:        orderShape,
		Capabilities: []reflect.Type{orderServiceType},
		Factory: func(context.Context) (any, error) {
			return &orderService{}, nil
		},
	}))
	assert.Nil(t, container.Register(Definition{
		Name:               "preserved",
		Shape:              orderShape,
		Capabilities:       []reflect.Type{orderServiceType},
		PreserveTargetType: true,
		Factory: func(context.Context) (any, error) {
			return &orderService{}, nil
		},
	}))
	assert.Nil(t, container.Register(Definition{
		Name:      "skipped",
		Shape:     orderShape,
		SkipProxy: true,
		Factory: func(context.Context) (any, error) {
			return &orderService{}, nil
		},
	}))
	c := newCreator(t, container, []types.Option{types.WithFrozen(true)},
		WithAdvisors(NewAdvisor(pointcut.ForMethods(orderServiceType, "Place"), &loggingInterceptor{rec: rec})))
	container.AddPostProcessor(c)

	instance, err := container.Get(context.Background(), "orders")
	assert.Nil(t, err)
	p, ok := instance.(*Proxy)
	assert.True(t, ok)
	assert.Equal(t, CapabilityStrategy, p.Strategy().Kind)
	assert.True(t, p.Advised().IsFrozen())
	again, err := container.Get(context.Background(), "orders")
	assert.Nil(t, err)
	assert.Same(t, p, again)

	svc := MustAs[OrderService](instance)
	id, err := svc.Place(context.Background(), 42)
	assert.Nil(t, err)
	assert.Equal(t, "order-42", id)
	assert.Equal(t, []string{"enter Place", "exit Place"}, rec.list())

	preserved, err := container.Get(context.Background(), "preserved")
	assert.Nil(t, err)
	assert.Equal(t, SubclassStrategy, preserved.(*Proxy).Strategy().Kind)
	assert.True(t, preserved.(*Proxy).Exposes("Internal"))

	skipped, err := container.Get(context.Background(), "skipped")
	assert.Nil(t, err)
	assert.False(t, IsProxy(skipped))

	_, err = container.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, types.ErrComponentNotFound))
	assert.Equal(t, []string{"orders", "preserved", "skipped"}, container.Names())
}

func TestLazyInitTargetSource(t *testing.T) {
	var created atomic.Int32
	container := NewContainer()
	assert.Nil(t, container.Register(Definition{
		Name:         "lazy",
		Shape:        orderShape,
		Capabilities: []reflect.Type{orderServiceType},
		Factory: func(context.Context) (any, error) {
			created.Add(1)
			return &orderService{}, nil
		},
	}))
	c := newCreator(t, container, nil,
		WithAdvisors(NewAdvisor(nil, &loggingInterceptor{rec: &recorder{}})),
		WithTargetSourceCreators(LazyInitTargetSourceCreator(container, "lazy")))
	container.AddPostProcessor(c)

	instance, err := container.Get(context.Background(), "lazy")
	assert.Nil(t, err)
	p, ok := instance.(*Proxy)
	assert.True(t, ok)
	assert.Equal(t, int32(0), created.Load())

	for i := 0; i < 3; i++ {
		_, err = p.Invoke(context.Background(), "Place", i)
		assert.Nil(t, err)
	}
	assert.Equal(t, int32(1), created.Load())

	// the after-initialization hook leaves the early proxy alone
	same, err := c.PostProcessAfterInitialization(p, "lazy")
	assert.Nil(t, err)
	assert.Same(t, p, same)
}

func TestDecodeConfigDrivesCreator(t *testing.T) {
	cfg, err := types.DecodeConfig(map[string]interface{}{
		"proxyTargetType": "true",
		"exposeProxy":     true,
	}, types.WithLogger(types.NopLogger()))
	assert.Nil(t, err)
	c, err := NewAutoProxyCreator(nil, cfg, WithAdvisors(NewAdvisor(pointcut.ForMethods(nil, "Place"), &loggingInterceptor{rec: &recorder{}})))
	assert.Nil(t, err)
	wrapped, err := c.WrapIfNecessary(&orderService{}, "orders")
	assert.Nil(t, err)
	p := wrapped.(*Proxy)
	assert.Equal(t, SubclassStrategy, p.Strategy().Kind)
	results, err := p.Invoke(context.Background(), "PlaceTwice", 3)
	assert.Nil(t, err)
	assert.Equal(t, []any{2}, results)
}
