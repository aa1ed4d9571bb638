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

package aspect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rulego/weave/api/types"
)

const (
	defaultErrorCountLimit = 3
	defaultLimitDuration   = time.Second * 10
)

// Compile-time check SkipFallbackAspect implements Interceptor.
var _ Interceptor = (*SkipFallbackAspect)(nil)

// SkipFallbackAspect implements a circuit breaker pattern for method failure handling.
// It automatically skips calls to a method when its error count reaches the threshold,
// providing system resilience and preventing cascade failures.
//
// SkipFallbackAspect 实现方法故障处理的熔断器模式。
// 当方法的错误计数达到阈值时，它自动跳过对该方法的调用，提供系统弹性并防止级联故障。
//
// Circuit Breaker Logic:
// 熔断器逻辑：
//  1. Track consecutive errors per method of each component type  按组件类型的每个方法跟踪连续错误
//  2. Skip the call with types.ErrFallback when error count >= ErrorCountLimit  错误计数 >= ErrorCountLimit 时返回 types.ErrFallback
//  3. Automatically recover after LimitDuration expires  LimitDuration 过期后自动恢复
//  4. Reset error count on a successful call  调用成功时重置错误计数
//
// Usage:
// 使用方法：
//
//	fallback := &aspect.SkipFallbackAspect{
//		ErrorCountLimit: 5,
//		LimitDuration:   time.Minute * 2,
//	}
//	_ = cfg.AddAdvisor(aspect.NewAdvisor(pointcut.ForMethods(nil, "Fetch*"), fallback))
type SkipFallbackAspect struct {
	// ErrorCountLimit is the maximum number of consecutive errors before
	// triggering circuit breaker. Default is 3 if not specified.
	//
	// ErrorCountLimit 是触发熔断器之前的最大连续错误数。
	// 如果未指定，默认为 3。
	ErrorCountLimit int64

	// LimitDuration is the time period for which the circuit breaker remains
	// active. After this duration, the method will be retried. Default is 10 seconds.
	//
	// LimitDuration 是熔断器保持活跃的时间周期。
	// 在此持续时间后，方法将重试。默认为 10 秒。
	LimitDuration time.Duration

	// ShouldCount decides whether err counts as a failure. If nil, every error counts.
	//
	// ShouldCount 判断错误是否计入失败次数，为 nil 时所有错误都计入。
	ShouldCount func(err error) bool

	// methodErrors stores error information per method.
	// Key: "Type.Method"
	//
	// methodErrors 存储每个方法的错误信息
	methodErrors *xsync.MapOf[string, *MethodError]
	once         sync.Once
}

// NewSkipFallbackAspect creates a circuit breaker. Zero values take the defaults.
//
// NewSkipFallbackAspect 创建熔断切面，零值使用默认配置。
func NewSkipFallbackAspect(errorCountLimit int64, limitDuration time.Duration) *SkipFallbackAspect {
	aspect := &SkipFallbackAspect{ErrorCountLimit: errorCountLimit, LimitDuration: limitDuration}
	aspect.init()
	return aspect
}

// Order returns the execution order of this aspect. Lower values execute earlier.
// SkipFallbackAspect has order 10, ensuring it operates before most other aspects.
//
// Order 返回此切面的执行顺序。值越低，执行越早。
// SkipFallbackAspect 的顺序为 10，确保它在大多数其他切面之前运行。
func (aspect *SkipFallbackAspect) Order() int {
	return 10
}

// Invoke 判断是否执行降级逻辑，并在调用失败时记录错误次数
func (aspect *SkipFallbackAspect) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	aspect.init()
	key := methodKey(inv)
	if methodError, ok := aspect.methodErrors.Load(key); ok &&
		atomic.LoadInt64(&methodError.errorCount) >= aspect.errorCountLimit() {
		if atomic.LoadInt64(&methodError.lastErrorTime)+aspect.limitDuration().Milliseconds() < time.Now().UnixMilli() {
			//超过时间，清除错误记录
			aspect.methodErrors.Delete(key)
		} else {
			//出错次数达到阈值，执行降级
			return nil, fmt.Errorf("%w: %s", types.ErrFallback, key)
		}
	}

	results, err := inv.Proceed(ctx)
	if err == nil {
		aspect.methodErrors.Delete(key)
	} else if aspect.counts(err) {
		methodError, _ := aspect.methodErrors.LoadOrStore(key, &MethodError{})
		atomic.AddInt64(&methodError.errorCount, 1)
		atomic.StoreInt64(&methodError.lastErrorTime, time.Now().UnixMilli())
	}
	return results, err
}

// ErrorCount returns the consecutive error count recorded for key ("Type.Method").
func (aspect *SkipFallbackAspect) ErrorCount(key string) int64 {
	aspect.init()
	if methodError, ok := aspect.methodErrors.Load(key); ok {
		return atomic.LoadInt64(&methodError.errorCount)
	}
	return 0
}

// Reset 清除方法的错误记录，不传参数时清除全部
func (aspect *SkipFallbackAspect) Reset(keys ...string) {
	aspect.init()
	if len(keys) == 0 {
		aspect.methodErrors.Clear()
		return
	}
	for _, key := range keys {
		aspect.methodErrors.Delete(key)
	}
}

// init 允许直接使用结构体字面量创建
func (aspect *SkipFallbackAspect) init() {
	aspect.once.Do(func() {
		aspect.methodErrors = xsync.NewMapOf[string, *MethodError]()
	})
}

func (aspect *SkipFallbackAspect) counts(err error) bool {
	if errors.Is(err, types.ErrFallback) {
		return false
	}
	return aspect.ShouldCount == nil || aspect.ShouldCount(err)
}

func (aspect *SkipFallbackAspect) errorCountLimit() int64 {
	if aspect.ErrorCountLimit <= 0 {
		return defaultErrorCountLimit
	}
	return aspect.ErrorCountLimit
}

func (aspect *SkipFallbackAspect) limitDuration() time.Duration {
	if aspect.LimitDuration <= 0 {
		return defaultLimitDuration
	}
	return aspect.LimitDuration
}

// MethodError represents the error tracking information for a specific method.
// It maintains both the count of consecutive errors and the timestamp of
// the last error occurrence for circuit breaker decision making.
//
// MethodError 表示特定方法的错误跟踪信息。
// 它维护连续错误的计数和最后一次错误发生的时间戳，用于熔断器决策。
type MethodError struct {
	// errorCount tracks the number of consecutive errors for this method.
	// errorCount 跟踪此方法的连续错误数量。
	errorCount int64

	// lastErrorTime stores the timestamp (in milliseconds) of the most recent error.
	// lastErrorTime 存储最近错误的时间戳（毫秒）。
	lastErrorTime int64
}
