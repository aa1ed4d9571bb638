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

package aspect

import (
	"context"
	"sync/atomic"

	"github.com/rulego/weave/api/types"
)

var _ Interceptor = (*ConcurrencyLimiterAspect)(nil)

// ConcurrencyLimiterAspect restricts the number of calls running through the
// proxies it is applied to at the same time. A call over the limit is rejected
// with types.ErrConcurrencyLimitReached and never reaches the target.
//
// ConcurrencyLimiterAspect 限制同时通过代理执行的调用数量，
// 超过限制的调用返回 types.ErrConcurrencyLimitReached，不会到达目标方法。
//
// One instance shares its counter between every proxy it is attached to.
// 同一个实例在其应用的所有代理之间共享计数器。
//
// Usage:
// 使用方法：
//
//	limiter := aspect.NewConcurrencyLimiterAspect(100)
//	_ = cfg.AddAdvisor(aspect.NewAdvisor(nil, limiter))
type ConcurrencyLimiterAspect struct {
	Max          int64 // Maximum number of concurrent calls  最大并发调用数量
	currentCount int64 // Current number of concurrent calls  当前并发调用数量
}

// NewConcurrencyLimiterAspect creates a limiter allowing max concurrent calls.
//
// NewConcurrencyLimiterAspect 创建允许 max 个并发调用的限制切面。
func NewConcurrencyLimiterAspect(max int) *ConcurrencyLimiterAspect {
	return &ConcurrencyLimiterAspect{
		Max: int64(max),
	}
}

// Order returns the execution priority of this aspect. Lower values execute earlier.
// This aspect has order 10, making it one of the first aspects to execute.
//
// Order 返回此切面的执行优先级。值越低，执行越早。
// 此切面的顺序为 10，使其成为最先执行的切面之一。
func (a *ConcurrencyLimiterAspect) Order() int {
	return 10
}

// Invoke acquires a slot, proceeds and releases the slot on every exit path.
//
// Invoke 获取执行名额，继续执行调用链，并在任何退出路径上释放名额。
//
// Algorithm:
// 算法：
//  1. Load current count atomically  原子加载当前计数
//  2. Check if limit would be exceeded  检查是否会超过限制
//  3. Use CAS to increment if within limit  如果在限制内则使用 CAS 增加
//  4. Retry if CAS fails due to concurrent modification  如果由于并发修改导致 CAS 失败则重试
func (a *ConcurrencyLimiterAspect) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	if !a.acquire() {
		return nil, types.ErrConcurrencyLimitReached
	}
	defer a.release()
	return inv.Proceed(ctx)
}

// Current returns the number of calls holding a slot.
func (a *ConcurrencyLimiterAspect) Current() int64 {
	return atomic.LoadInt64(&a.currentCount)
}

func (a *ConcurrencyLimiterAspect) acquire() bool {
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return false
		}
		// 如果CAS失败，说明有其他goroutine修改了计数器，重试
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			return true
		}
	}
}

func (a *ConcurrencyLimiterAspect) release() {
	atomic.AddInt64(&a.currentCount, -1)
}
