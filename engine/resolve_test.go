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
	"reflect"
	"testing"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/pointcut"
	"github.com/stretchr/testify/assert"
)

type introductionSensitive struct {
	seen []bool
}

func (m *introductionSensitive) Matches(types.Method, reflect.Type) bool { return false }

func (m *introductionSensitive) IsRuntime() bool { return false }

func (m *introductionSensitive) MatchesArgs(types.Method, reflect.Type, []any) bool { return false }

func (m *introductionSensitive) MatchesWithIntroductions(_ types.Method, _ reflect.Type, hasIntroductions bool) bool {
	m.seen = append(m.seen, hasIntroductions)
	return hasIntroductions
}

func TestResolveApplicableAdvisors(t *testing.T) {
	rec := &recorder{}
	placeOnly := NewAdvisor(pointcut.ForMethods(orderServiceType, "Place"), &recordingInterceptor{rec: rec})
	otherShape := NewAdvisor(pointcut.ForType(reflect.TypeOf(dispatchingTarget{})), &recordingInterceptor{rec: rec})
	internalOnly := NewAdvisor(pointcut.ForMethods(nil, "Internal"), &recordingInterceptor{rec: rec})
	everywhere := NewAdvisor(nil, &recordingInterceptor{rec: rec})

	candidates := []types.Advisor{everywhere, otherShape, internalOnly, placeOnly}
	applicable := ResolveApplicableAdvisors(candidates, orderShape)
	assert.Equal(t, []types.Advisor{everywhere, internalOnly, placeOnly}, applicable)

	assert.Empty(t, ResolveApplicableAdvisors(nil, orderShape))
	assert.Empty(t, ResolveApplicableAdvisors([]types.Advisor{otherShape}, orderShape))
}

func TestResolveWithCapabilities(t *testing.T) {
	type plain struct{}
	audit := NewAdvisor(pointcut.New(nil, pointcut.DeclaredBy(auditableType)), &recordingInterceptor{})
	shape := reflect.TypeOf(&plain{})

	assert.Empty(t, ResolveApplicableAdvisors([]types.Advisor{audit}, shape))
	assert.Len(t, ResolveApplicableAdvisors([]types.Advisor{audit}, shape, auditableType), 1)
}

func TestResolveIntroductionsFirst(t *testing.T) {
	mixin, err := NewDelegatingIntroductionInterceptor(&auditTrail{}, auditableType)
	assert.Nil(t, err)
	intro := NewIntroductionAdvisor(mixin, auditableType)
	matcher := &introductionSensitive{}
	dependent := NewAdvisor(pointcut.New(nil, matcher), &recordingInterceptor{})

	// the introduction comes after the dependent advisor but is still seen by it
	applicable := ResolveApplicableAdvisors([]types.Advisor{dependent, intro}, orderShape)
	assert.Equal(t, []types.Advisor{dependent, intro}, applicable)
	assert.NotEmpty(t, matcher.seen)
	assert.True(t, matcher.seen[0])

	matcher.seen = nil
	assert.Empty(t, ResolveApplicableAdvisors([]types.Advisor{dependent}, orderShape))
	assert.False(t, matcher.seen[0])
}

func TestSortAdvisorsStable(t *testing.T) {
	a := NewAdvisor(nil, &recordingInterceptor{name: "a"}).WithOrder(10)
	b := NewAdvisor(nil, &recordingInterceptor{name: "b"}).WithOrder(1)
	c := NewAdvisor(nil, &recordingInterceptor{name: "c"}).WithOrder(10)
	list := []types.Advisor{a, b, c}
	SortAdvisors(list)
	assert.Equal(t, []types.Advisor{b, a, c}, list)
}
