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


package aspect

import (
	"context"
	"errors"
	"time"

	"github.com/rulego/weave/api/types"
)

const (
	// DefaultMaxAttempts is the default number of attempts, the first call included.
	DefaultMaxAttempts = 3
	// DefaultBaseBackoff is the default wait before the second attempt.
	DefaultBaseBackoff = 100 * time.Millisecond
)

var _ Interceptor = (*RetryAspect)(nil)

// RetryAspect proceeds again when the call fails with a retryable error.
// The wait between attempts doubles each time, starting at BaseBackoff
// and capped by MaxBackoff. A cancelled context stops the retries.
//
// RetryAspect 调用失败且错误可重试时再次执行，每次等待时间翻倍。
//
// It must only be applied to idempotent methods. Place it inside a
// transaction aspect so every attempt gets its own transaction.
// 只能应用于幂等方法。放在事务切面之内，每次重试都在新的事务中执行。
type RetryAspect struct {
	// MaxAttempts is the total number of attempts, defaulting to DefaultMaxAttempts.
	MaxAttempts int
	// BaseBackoff is the wait before the second attempt, defaulting to DefaultBaseBackoff.
	BaseBackoff time.Duration
	// MaxBackoff caps the wait. Zero means no cap.
	MaxBackoff time.Duration
	// Retryable reports whether err is worth another attempt. If nil, every
	// error except context cancellation, types.ErrFallback and
	// types.ErrConcurrencyLimitReached is retried.
	Retryable func(err error) bool
	// Logger receives one record per retry. Nil disables logging.
	Logger types.Logger
}

// NewRetryAspect creates a retry aspect with maxAttempts attempts.
func NewRetryAspect(maxAttempts int, baseBackoff time.Duration) *RetryAspect {
	return &RetryAspect{MaxAttempts: maxAttempts, BaseBackoff: baseBackoff}
}

// Order 50, inside tracing and metrics so a retried call is counted once.
func (a *RetryAspect) Order() int {
	return 50
}

func (a *RetryAspect) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := a.backoff(attempt)
			if a.Logger != nil {
				a.Logger.Printf("retry method=%s,attempt=%d,backoff=%s,err=%s", methodKey(inv), attempt+1, backoff, lastErr)
			}
			select {
			case <-ctx.Done():
				return nil, errors.Join(lastErr, ctx.Err())
			case <-time.After(backoff):
			}
		}
		results, err := inv.Proceed(ctx)
		if err == nil || !a.retryable(err) {
			return results, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// backoff returns BaseBackoff * 2^(attempt-1).
func (a *RetryAspect) backoff(attempt int) time.Duration {
	base := a.BaseBackoff
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	d := base * time.Duration(1<<uint(shift))
	if a.MaxBackoff > 0 && (d > a.MaxBackoff || d <= 0) {
		d = a.MaxBackoff
	}
	return d
}

func (a *RetryAspect) retryable(err error) bool {
	if a.Retryable != nil {
		return a.Retryable(err)
	}
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, types.ErrFallback) &&
		!errors.Is(err, types.ErrConcurrencyLimitReached)
}
