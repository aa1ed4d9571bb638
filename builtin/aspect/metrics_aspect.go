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
	"time"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/api/types/metrics"
)

// MetricsAspect 统计被拦截调用的指标，包括总计和按方法统计
type MetricsAspect struct {
	metrics *metrics.InvocationMetrics
}

var _ Interceptor = (*MetricsAspect)(nil)

func NewMetricsAspect(m *metrics.InvocationMetrics) *MetricsAspect {
	if m == nil {
		m = metrics.NewInvocationMetrics()
	}
	return &MetricsAspect{
		metrics: m,
	}
}

func (a *MetricsAspect) Order() int {
	return 20
}

func (a *MetricsAspect) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	method := a.metrics.Method(methodKey(inv))
	a.metrics.IncrementCurrent()
	a.metrics.IncrementTotal()
	method.IncrementCurrent()
	method.IncrementTotal()
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		a.metrics.AddElapsed(elapsed)
		method.AddElapsed(elapsed)
		a.metrics.DecrementCurrent()
		method.DecrementCurrent()
	}()

	results, err := inv.Proceed(ctx)
	if err != nil {
		a.metrics.IncrementFailed()
		method.IncrementFailed()
	} else {
		a.metrics.IncrementSuccess()
		method.IncrementSuccess()
	}
	return results, err
}

// GetMetrics 返回当前的指标
func (a *MetricsAspect) GetMetrics() *metrics.InvocationMetrics {
	return a.metrics
}
