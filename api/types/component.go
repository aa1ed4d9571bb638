/*
 * Copyright 2023 The RuleGo Authors.
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

package types

import (
	"context"
	"reflect"
)

// ComponentRegistry is the component container the engine collaborates with.
//
// ComponentRegistry 组件注册器。
type ComponentRegistry interface {
	// CapabilitiesOf returns the capability interfaces declared for the component
	// registered under name with the given shape.
	// CapabilitiesOf 返回组件声明的能力接口列表
	CapabilitiesOf(name string, shape reflect.Type) []reflect.Type
	// IsInfrastructure reports whether shape belongs to the interception
	// machinery itself and must never be wrapped.
	// IsInfrastructure 判断类型是否属于基础设施组件(不会被代理)
	IsInfrastructure(shape reflect.Type) bool
	// LookupByName returns the component registered under name.
	// LookupByName 根据名称获取组件
	LookupByName(name string) (any, error)
}

// TargetTypePreserver is optionally implemented by a ComponentRegistry that
// lets individual components force the subclass wrap strategy.
type TargetTypePreserver interface {
	PreserveTargetType(name string, shape reflect.Type) bool
}

// ProxySkipper is optionally implemented by a ComponentRegistry that wants
// certain components left unwrapped.
type ProxySkipper interface {
	ShouldSkip(name string, shape reflect.Type) bool
}

// TargetSource supplies the instance a proxy dispatches to.
//
// TargetSource 目标源，为代理提供调用的目标实例。
type TargetSource interface {
	// TargetType returns the shape of the targets produced by this source.
	TargetType() reflect.Type
	// IsStatic reports whether GetTarget always returns the same instance.
	IsStatic() bool
	// GetTarget returns the instance for the current call.
	GetTarget(ctx context.Context) (any, error)
	// ReleaseTarget gives back an instance obtained from GetTarget.
	ReleaseTarget(ctx context.Context, target any) error
}

// Evaluator evaluates the expressions attached to cache operations.
//
// Evaluator 表达式求值器。
type Evaluator interface {
	// EvaluateCondition evaluates expr and requires a boolean result.
	EvaluateCondition(expr string, bindings map[string]any) (bool, error)
	// EvaluateKey evaluates expr and returns its value.
	EvaluateKey(expr string, bindings map[string]any) (any, error)
}

// Dispatcher is optionally implemented by components that route their own
// method calls instead of being invoked through reflection.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, args []any) ([]any, error)
}
