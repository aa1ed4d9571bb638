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

package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/cache/store"
	"github.com/rulego/weave/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMethod(t *testing.T) types.Method {
	m, ok := types.LookupMethod(reflect.TypeOf(&orderService{}), "Find")
	require.True(t, ok)
	return m
}

func TestBindings(t *testing.T) {
	target := newOrderService()
	m := findMethod(t)
	b := Bindings(target, m, []any{5}, []string{"id", "extra"}, nil, false)
	assert.Equal(t, 5, b["id"])
	assert.Equal(t, 5, b["p0"])
	assert.Equal(t, 5, b["a0"])
	assert.Equal(t, "Find", b[BindMethod])
	assert.Equal(t, target, b[BindTarget])
	assert.Equal(t, []any{5}, b[BindArgs])
	_, ok := b["extra"]
	assert.False(t, ok)
	_, ok = b[BindResult]
	assert.False(t, ok)

	b = Bindings(target, m, nil, nil, "r", true)
	assert.Equal(t, "r", b[BindResult])
}

func TestExprEvaluator(t *testing.T) {
	e := NewExprEvaluator()
	bindings := Bindings(nil, findMethod(t), []any{5}, []string{"id"}, nil, false)

	ok, err := e.EvaluateCondition("#id > 0", bindings)
	assert.Nil(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateCondition("#missing", bindings)
	assert.Nil(t, err)
	assert.False(t, ok)

	_, err = e.EvaluateCondition("#id + 1", bindings)
	var evalErr *EvaluationError
	assert.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "#id + 1", evalErr.Expr)

	key, err := e.EvaluateKey("#root.method + ':' + string(#id)", bindings)
	assert.Nil(t, err)
	assert.Equal(t, "Find:5", key)

	_, err = e.EvaluateKey("#id +", bindings)
	assert.ErrorAs(t, err, &evalErr)
	assert.Nil(t, e.Compile("#id"))
}

func TestSerializeKey(t *testing.T) {
	assert.Equal(t, "Find", SerializeKey("Find"))
	assert.Equal(t, "Find::5::nil", SerializeKey("Find", 5, nil))
	assert.Equal(t,
		SerializeKey("Find", map[string]int{"b": 2, "a": 1}),
		SerializeKey("Find", map[string]int{"a": 1, "b": 2}))
	assert.Equal(t, `Find::map[2]:{"a"=1,"b"=2}`, SerializeKey("Find", map[string]int{"b": 2, "a": 1}))
	assert.Equal(t, `Find::cache.order:{ID:5,Name:"x"}`, SerializeKey("Find", &order{ID: 5, Name: "x"}))
	assert.Equal(t, `Find::slice[2]:{"a","b"}`, SerializeKey("Find", []string{"a", "b"}))
	assert.Equal(t, "Find::slice:nil", SerializeKey("Find", []string(nil)))

	assert.Equal(t, "abc", KeyString("abc"))
	assert.Equal(t, "42", KeyString(42))

	key, err := DefaultKeyGenerator{}.Generate(newOrderService(), findMethod(t), 5)
	assert.Nil(t, err)
	assert.Equal(t, "orderService.Find::5", key)
}

type period struct {
	from, to int
}

func TestSerializeKeyDistinctArguments(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	next := day.Add(time.Hour)
	assert.NotEqual(t, SerializeKey("x", day), SerializeKey("x", next))
	assert.Equal(t, `x::time.Time:"2024-01-01T00:00:00Z"`, SerializeKey("x", day))
	assert.Equal(t, SerializeKey("x", day), SerializeKey("x", &day))

	// only unexported fields
	assert.NotEqual(t, SerializeKey("x", period{1, 2}), SerializeKey("x", period{1, 3}))

	// argument boundaries survive a separator inside a string
	assert.NotEqual(t, SerializeKey("Join", "a", "b::c"), SerializeKey("Join", "a::b", "c"))
	assert.NotEqual(t, SerializeKey("Find", "5"), SerializeKey("Find", 5))
	assert.Equal(t, `Join::"a"::"b::c"`, SerializeKey("Join", "a", "b::c"))
}

type calendar struct {
	calls int
}

func (c *calendar) Daily(day time.Time) string {
	c.calls++
	return day.Format("2006-01-02")
}

func (c *calendar) Join(a, b string) string {
	c.calls++
	return a + "|" + b
}

func TestDefaultKeyDistinguishesCalls(t *testing.T) {
	target := &calendar{}
	interceptor, err := NewInterceptor(
		NewNameMatchSource().AddMethod("*", &Cacheable{BaseOperation: BaseOperation{CacheNames: []string{"calendar"}}}),
		WithCacheManager(store.NewMemoryManager(0)))
	require.NoError(t, err)
	cfg := engine.NewProxyConfig(engine.NewSingletonTargetSource(target))
	require.NoError(t, cfg.AddAdvisor(NewAdvisor(interceptor)))
	p, err := cfg.GetProxy()
	require.NoError(t, err)
	ctx := context.Background()

	first, err := engine.Call[string](ctx, p, "Daily", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := engine.Call[string](ctx, p, "Daily", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", first)
	assert.Equal(t, "2025-06-30", second)
	assert.Equal(t, 2, target.calls)

	joined, err := engine.Call[string](ctx, p, "Join", "a", "b::c")
	require.NoError(t, err)
	assert.Equal(t, "a|b::c", joined)
	joined, err = engine.Call[string](ctx, p, "Join", "a::b", "c")
	require.NoError(t, err)
	assert.Equal(t, "a::b|c", joined)
	assert.Equal(t, 4, target.calls)

	// same arguments still hit
	joined, err = engine.Call[string](ctx, p, "Join", "a::b", "c")
	require.NoError(t, err)
	assert.Equal(t, "a::b|c", joined)
	assert.Equal(t, 4, target.calls)
}

func TestResultsOf(t *testing.T) {
	m := findMethod(t)
	o := &order{ID: 5, Name: "x"}
	results, err := resultsOf(o, m)
	assert.Nil(t, err)
	assert.Same(t, o, results[0])

	// values decoded by a remote store are converted to the result type
	results, err = resultsOf(map[string]interface{}{"ID": int64(5), "Name": "x"}, m)
	assert.Nil(t, err)
	assert.Equal(t, o, results[0])

	results, err = resultsOf(nil, m)
	assert.Nil(t, err)
	assert.Equal(t, (*order)(nil), results[0])

	_, err = resultsOf("not an order", m)
	assert.NotNil(t, err)

	count, _ := types.LookupMethod(reflect.TypeOf(&orderService{}), "Count")
	results, err = resultsOf(int64(3), count)
	assert.Nil(t, err)
	assert.Equal(t, 3, results[0])
}

func TestEvictionScheduler(t *testing.T) {
	ctx := context.Background()
	manager := store.NewMemoryManager(0, "orders", "customers")
	orders, _ := manager.GetCache("orders")
	customers, _ := manager.GetCache("customers")
	require.NoError(t, orders.Put(ctx, "1", "order-1"))
	require.NoError(t, customers.Put(ctx, "1", "alice"))

	s := NewEvictionScheduler(manager, nil)
	_, err := s.Schedule("not a spec")
	assert.NotNil(t, err)

	require.NoError(t, s.EvictNow(ctx, "orders"))
	_, ok, _ := orders.Get(ctx, "1")
	assert.False(t, ok)
	_, ok, _ = customers.Get(ctx, "1")
	assert.True(t, ok)

	err = s.EvictNow(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCacheNotFound))

	id, err := s.Schedule("* * * * * *")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())
	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool {
		_, ok, _ := customers.Get(ctx, "1")
		return !ok
	}, 3*time.Second, 50*time.Millisecond)
	s.Remove(id)
	assert.Equal(t, 0, s.Entries())
}
