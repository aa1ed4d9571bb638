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
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
)

// CapabilityAdapters maps capability interfaces to functions building a typed
// view of a proxy. Register one adapter per capability interface; As uses them
// to hand callers a value that satisfies the interface and forwards to the proxy.
type CapabilityAdapters struct {
	adapters *xsync.MapOf[reflect.Type, func(p *Proxy) any]
}

// DefaultCapabilityAdapters is used by proxies without their own adapters.
var DefaultCapabilityAdapters = NewCapabilityAdapters()

// NewCapabilityAdapters creates an empty adapter set.
func NewCapabilityAdapters() *CapabilityAdapters {
	return &CapabilityAdapters{adapters: xsync.NewMapOf[reflect.Type, func(p *Proxy) any]()}
}

// RegisterAdapter registers the typed view for interface I in registry, or in
// DefaultCapabilityAdapters when registry is nil.
//
//	engine.RegisterAdapter[OrderService](nil, func(p *engine.Proxy) OrderService {
//		return orderServiceProxy{p}
//	})
func RegisterAdapter[I any](registry *CapabilityAdapters, fn func(p *Proxy) I) {
	if registry == nil {
		registry = DefaultCapabilityAdapters
	}
	registry.adapters.Store(types.TypeOf[I](), func(p *Proxy) any { return fn(p) })
}

func (c *CapabilityAdapters) lookup(iface reflect.Type) (func(p *Proxy) any, bool) {
	return c.adapters.Load(iface)
}

// As returns v as an I. For a proxy the registered adapter for I is used,
// provided the proxy exposes I; any other value is type asserted.
func As[I any](v any) (I, bool) {
	var zero I
	p, ok := v.(*Proxy)
	if !ok {
		i, ok := v.(I)
		return i, ok
	}
	iface := types.TypeOf[I]()
	if !p.Implements(iface) {
		return zero, false
	}
	fn, ok := p.config.capabilities.lookup(iface)
	if !ok && p.config.capabilities != DefaultCapabilityAdapters {
		fn, ok = DefaultCapabilityAdapters.lookup(iface)
	}
	if !ok {
		return zero, false
	}
	i, ok := fn(p).(I)
	return i, ok
}

// MustAs is like As but panics when v cannot be used as I.
func MustAs[I any](v any) I {
	i, ok := As[I](v)
	if !ok {
		panic(fmt.Sprintf("%T cannot be used as %s", v, types.TypeOf[I]()))
	}
	return i
}

// Call invokes method on p and returns its first result as R. It is the
// building block of typed adapters.
func Call[R any](ctx context.Context, p *Proxy, method string, args ...any) (R, error) {
	var r R
	results, err := p.Invoke(ctx, method, args...)
	if len(results) > 0 && results[0] != nil {
		if v, ok := results[0].(R); ok {
			r = v
		} else if err == nil {
			err = fmt.Errorf("%s returned %T, not %s", method, results[0], types.TypeOf[R]())
		}
	}
	return r, err
}

// Exec invokes a method that returns only an error.
func Exec(ctx context.Context, p *Proxy, method string, args ...any) error {
	_, err := p.Invoke(ctx, method, args...)
	return err
}

// IsProxy reports whether v is a proxy.
func IsProxy(v any) bool {
	_, ok := v.(*Proxy)
	return ok
}

// TargetOf returns the instance behind a proxy with a static target source.
// Non-proxies are returned as they are.
func TargetOf(v any) (any, error) {
	p, ok := v.(*Proxy)
	if !ok {
		return v, nil
	}
	ts := p.config.TargetSource()
	if !ts.IsStatic() {
		return nil, fmt.Errorf("%s has a non-static target source", p)
	}
	return ts.GetTarget(context.Background())
}
