/*
 * Copyright 2024 The RuleGo Authors.
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

// Package aspect provides built-in interceptors for the weave proxy engine.
// Each aspect is an ordinary types.Interceptor with an Order, so it can be
// attached to any proxy through NewAdvisor and a pointcut.
//
// Package aspect 为 weave 代理引擎提供内置拦截器。
// 每个切面都是带有 Order 的 types.Interceptor，可以通过 NewAdvisor 和切入点应用到任意代理。
//
// Available Built-in Aspects:
// 可用的内置切面：
//
//   - ConcurrencyLimiterAspect: Limits concurrent calls through the proxy
//     ConcurrencyLimiterAspect：限制通过代理的并发调用数
//
//   - SkipFallbackAspect: Circuit breaker that skips methods failing repeatedly
//     SkipFallbackAspect：对连续失败的方法进行熔断
//
//   - TracingAspect: Starts an OpenTelemetry span around every call
//     TracingAspect：为每次调用创建 OpenTelemetry span
//
//   - MetricsAspect: Collects call counters, total and per method
//     MetricsAspect：收集调用计数，包括总计和按方法统计
//
//   - RetryAspect: Proceeds again when the call fails with a retryable error
//     RetryAspect：调用失败且错误可重试时再次执行
//
//   - Debug: Logs arguments and results of every call
//     Debug：记录每次调用的参数和结果
//
// Aspect Execution Order:
// 切面执行顺序：
//
// Aspects are executed in order based on their Order() method, smaller runs outermost:
// 切面根据其 Order() 方法按顺序执行，值越小越靠外：
//  1. ConcurrencyLimiterAspect (order: 10)
//  2. SkipFallbackAspect (order: 10)
//  3. TracingAspect (order: 15)
//  4. MetricsAspect (order: 20)
//  5. RetryAspect (order: 50)
//  6. Debug (order: 900)
//
// Usage Examples:
// 使用示例：
//
//	cfg := engine.NewProxyConfig(engine.NewSingletonTargetSource(svc))
//	_ = cfg.AddAdvisor(aspect.NewAdvisor(nil, aspect.NewConcurrencyLimiterAspect(100)))
//	_ = cfg.AddAdvisor(aspect.NewAdvisor(pointcut.ForMethods(nil, "Find*"), aspect.NewMetricsAspect(nil)))
//	proxy, err := cfg.GetProxy()
//
// With an AutoProxyCreator the same advisors are passed through engine.WithAdvisors.
// 使用 AutoProxyCreator 时，通过 engine.WithAdvisors 传入相同的通知器。
package aspect
