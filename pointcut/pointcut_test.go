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

package pointcut

import (
	"context"
	"reflect"
	"testing"

	"github.com/rulego/weave/api/types"
	"github.com/stretchr/testify/assert"
)

type OrderService interface {
	Place(ctx context.Context, id int) (string, error)
	Cancel(id int) error
}

type orderService struct{}

func (s *orderService) Place(ctx context.Context, id int) (string, error) { return "ok", nil }
func (s *orderService) Cancel(id int) error                               { return nil }
func (s *orderService) Audit()                                            {}

type Checkout struct {
	cf *ControlFlow
}

func (c *Checkout) Run() bool {
	return c.cf.MatchesArgs(types.Method{Name: "Place"}, nil, nil)
}

// Nested calls Run below depth levels of recursion.
func (c *Checkout) Nested(depth int) bool {
	if depth == 0 {
		return c.Run()
	}
	return c.Nested(depth - 1)
}

func (c *Checkout) Other() bool {
	return c.cf.MatchesArgs(types.Method{Name: "Place"}, nil, nil)
}

var (
	orderIface = types.TypeOf[OrderService]()
	orderShape = reflect.TypeOf(&orderService{})
)

func method(t *testing.T, shape reflect.Type, name string) types.Method {
	m, ok := types.LookupMethod(shape, name)
	if !ok {
		t.Fatalf("method %s not found on %s", name, shape)
	}
	return m
}

func TestSimpleMatch(t *testing.T) {
	cases := []struct {
		pattern string
		str     string
		want    bool
	}{
		{"get*", "getOrder", true},
		{"get*", "setOrder", false},
		{"*Order", "getOrder", true},
		{"*Order*", "getOrderById", true},
		{"find*By*", "findOrderById", true},
		{"find*By*", "findOrder", false},
		{"*", "anything", true},
		{"Place", "Place", true},
		{"Place", "Placed", false},
		{"", "", false},
		{"**Id", "getId", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SimpleMatch(c.pattern, c.str), "%s ~ %s", c.pattern, c.str)
	}
}

func TestTypeFilter(t *testing.T) {
	assert.True(t, TypeFilter(orderIface).Matches(orderShape))
	assert.True(t, TypeFilter(reflect.TypeOf(orderService{})).Matches(orderShape))
	assert.False(t, TypeFilter(reflect.TypeOf(Checkout{})).Matches(orderShape))
	assert.True(t, PackageFilter("github.com/rulego/weave").Matches(orderShape))
	assert.False(t, PackageFilter("github.com/acme").Matches(orderShape))
}

func TestFilterShortCircuit(t *testing.T) {
	calls := 0
	counting := func(result bool) types.ClassFilter {
		return ClassFilterFunc(func(reflect.Type) bool {
			calls++
			return result
		})
	}

	assert.True(t, UnionFilter(counting(true), counting(false)).Matches(orderShape))
	assert.Equal(t, 1, calls)

	calls = 0
	assert.False(t, IntersectionFilter(counting(false), counting(true)).Matches(orderShape))
	assert.Equal(t, 1, calls)

	calls = 0
	assert.True(t, IntersectionFilter(counting(true), counting(true)).Matches(orderShape))
	assert.Equal(t, 2, calls)
}

func TestMethodMatchers(t *testing.T) {
	place := method(t, orderIface, "Place")
	cancel := method(t, orderIface, "Cancel")

	assert.True(t, NameMatcher("Pl*").Matches(place, orderShape))
	assert.False(t, NameMatcher("Pl*").Matches(cancel, orderShape))
	assert.True(t, UnionMatcher(NameMatcher("Pl*"), NameMatcher("Can*")).Matches(cancel, orderShape))
	assert.False(t, IntersectionMatcher(NameMatcher("Pl*"), NameMatcher("*ce")).Matches(place, orderShape))
	assert.True(t, DeclaredBy(orderIface).Matches(method(t, orderShape, "Cancel"), orderShape))
	assert.False(t, DeclaredBy(orderIface).Matches(method(t, orderShape, "Audit"), orderShape))

	positive := &RuntimeMatcher{
		Static: NameMatcher("Place"),
		Args: func(m types.Method, shape reflect.Type, args []any) bool {
			return len(args) > 0 && args[0].(int) > 0
		},
	}
	assert.True(t, positive.IsRuntime())
	assert.True(t, positive.Matches(place, orderShape))
	assert.True(t, positive.MatchesArgs(place, orderShape, []any{1}))
	assert.False(t, positive.MatchesArgs(place, orderShape, []any{-1}))

	both := IntersectionMatcher(NameMatcher("Place"), positive)
	assert.True(t, both.IsRuntime())
	assert.False(t, both.MatchesArgs(place, orderShape, []any{-1}))
	either := UnionMatcher(NameMatcher("Place"), positive)
	assert.True(t, either.MatchesArgs(place, orderShape, []any{-1}))
}

func TestPointcutComposition(t *testing.T) {
	place := method(t, orderShape, "Place")
	audit := method(t, orderShape, "Audit")
	checkoutShape := reflect.TypeOf(&Checkout{})
	run := method(t, checkoutShape, "Run")

	orders := ForMethods(orderIface, "Place")
	checkout := ForMethods(reflect.TypeOf(Checkout{}), "Audit", "Run")

	union := Union(orders, checkout)
	assert.True(t, Matches(union, place, orderShape))
	assert.True(t, Matches(union, run, checkoutShape))
	// Audit is named by the checkout pointcut only, which does not accept the order shape.
	assert.False(t, Matches(union, audit, orderShape))

	inter := Intersection(ForType(orderIface), ForMethods(nil, "Pl*"))
	assert.True(t, Matches(inter, place, orderShape))
	assert.False(t, Matches(inter, audit, orderShape))
	assert.False(t, Matches(inter, run, checkoutShape))

	assert.True(t, Matches(True, audit, orderShape))
}

func TestControlFlow(t *testing.T) {
	cf := NewControlFlow(reflect.TypeOf(&Checkout{}))
	c := &Checkout{cf: cf}

	assert.False(t, cf.MatchesArgs(types.Method{Name: "Place"}, nil, nil))
	assert.True(t, c.Run())
	assert.True(t, c.Other())
	assert.Equal(t, int64(3), cf.EvaluationCount())

	onlyRun := NewControlFlowMethod(reflect.TypeOf(Checkout{}), "Run")
	c.cf = onlyRun
	assert.True(t, c.Run())
	assert.False(t, c.Other())
	assert.Equal(t, int64(2), onlyRun.EvaluationCount())
	assert.True(t, onlyRun.IsRuntime())
	assert.True(t, onlyRun.Matches(types.Method{Name: "Any"}, orderShape))
}

func TestControlFlowDeepStack(t *testing.T) {
	cf := NewControlFlowMethod(reflect.TypeOf(&deepCaller{}), "Start")
	s := &deepCaller{c: &Checkout{cf: cf}}
	for _, depth := range []int{10, 60, 70, 300} {
		assert.True(t, s.Start(depth), "depth %d", depth)
	}
	assert.False(t, (&Checkout{cf: cf}).Nested(70))
}

type deepCaller struct {
	c *Checkout
}

func (s *deepCaller) Start(depth int) bool {
	return s.c.Nested(depth)
}

func TestExpression(t *testing.T) {
	place := method(t, orderShape, "Place")
	cancel := method(t, orderShape, "Cancel")

	pc, err := Expression(`name == "orderService" && method startsWith "Pl"`)
	assert.Nil(t, err)
	assert.True(t, Matches(pc, place, orderShape))
	assert.False(t, Matches(pc, cancel, orderShape))

	shapeOnly := MustExpression(`pkg endsWith "/pointcut" && typeName == "*pointcut.orderService"`)
	assert.True(t, shapeOnly.ClassFilter().Matches(orderShape))
	assert.False(t, shapeOnly.ClassFilter().Matches(reflect.TypeOf(&Checkout{})))

	byArgs := MustExpression(`numArgs == 1`)
	assert.True(t, Matches(byArgs, place, orderShape))
	assert.True(t, Matches(byArgs, cancel, orderShape))
	assert.False(t, Matches(byArgs, method(t, orderShape, "Audit"), orderShape))

	_, err = Expression(`method +`)
	assert.NotNil(t, err)
	_, err = Expression(`method`)
	assert.NotNil(t, err)
}
