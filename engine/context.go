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

import "context"

type currentProxyKey struct{}

// WithCurrentProxy returns a copy of ctx carrying p.
func WithCurrentProxy(ctx context.Context, p *Proxy) context.Context {
	return context.WithValue(ctx, currentProxyKey{}, p)
}

// CurrentProxy returns the proxy handling the current call. It is only set for
// proxies configured to expose themselves, and lets a target call itself
// through its proxy so that self calls are intercepted too.
//
// CurrentProxy 获取当前正在执行的代理对象，需开启 ExposeProxy。
func CurrentProxy(ctx context.Context) (*Proxy, bool) {
	p, ok := ctx.Value(currentProxyKey{}).(*Proxy)
	return p, ok && p != nil
}
