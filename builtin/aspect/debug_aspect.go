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
	"sync"

	"github.com/rulego/weave/api/types"
)

const (
	// In marks the debug record written before the call proceeds.
	In = "IN"
	// Out marks the debug record written after the call returned.
	Out = "OUT"
)

// Compile-time check Debug implements Interceptor.
var _ Interceptor = (*Debug)(nil)

var defaultLogger = sync.OnceValue(types.DefaultLogger)

// Debug is a debug logging aspect. It records the arguments of every
// intercepted call on the way in and the results and error on the way out.
//
// Debug 是一个调试日志切面，记录每次被拦截调用的入参，以及返回的结果和错误。
//
// Usage:
// 使用方法：
//
//	debug := &aspect.Debug{Logger: types.NewZapLogger(zapLogger)}
//	_ = cfg.AddAdvisor(aspect.NewAdvisor(nil, debug))
//
// When OnDebug is set it receives the records instead of the logger.
// 设置 OnDebug 后，记录交给 OnDebug 而不是日志。
type Debug struct {
	// Logger receives the records when OnDebug is nil, defaulting to types.DefaultLogger().
	// Logger 日志记录器，OnDebug 为空时使用
	Logger types.Logger
	// OnDebug is called with In before the call and with Out after it.
	// values holds the arguments for In and the results for Out.
	//
	// OnDebug 调试回调，调用前 flowType 为 In，调用后为 Out。
	OnDebug func(ctx context.Context, flowType string, method string, values []any, err error)
}

// Order returns the execution order of this aspect. Higher values execute later.
// Debug aspect executes with order 900, so it sits right next to the target.
//
// Order 返回此切面的执行顺序。值越高，执行越晚。
// Debug 切面的执行顺序为 900，最靠近目标方法。
func (aspect *Debug) Order() int {
	return 900
}

// Invoke logs the incoming arguments, proceeds and logs the outcome.
//
// Invoke 记录入参，继续执行调用链，然后记录结果。
func (aspect *Debug) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	method := methodKey(inv)
	aspect.onDebug(ctx, In, method, inv.Arguments(), nil)
	results, err := inv.Proceed(ctx)
	aspect.onDebug(ctx, Out, method, results, err)
	return results, err
}

func (aspect *Debug) onDebug(ctx context.Context, flowType string, method string, values []any, err error) {
	if aspect.OnDebug != nil {
		aspect.OnDebug(ctx, flowType, method, values, err)
		return
	}
	logger := aspect.Logger
	if logger == nil {
		logger = defaultLogger()
	}
	if err != nil {
		logger.Printf("flowType=%s,method=%s,values=%v,err=%s", flowType, method, values, err)
	} else {
		logger.Printf("flowType=%s,method=%s,values=%v", flowType, method, values)
	}
}
