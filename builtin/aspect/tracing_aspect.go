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

	"github.com/rulego/weave/api/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used when no tracer is given.
const TracerName = "github.com/rulego/weave"

const (
	attrComponent = attribute.Key("weave.component")
	attrMethod    = attribute.Key("weave.method")
	attrArgs      = attribute.Key("weave.args")
)

var _ Interceptor = (*TracingAspect)(nil)

// TracingAspect starts an OpenTelemetry span around every intercepted call.
// The span is named "Type.Method" and is a child of the span found in the
// call context. Failed calls record the error and set the span status.
//
// TracingAspect 为每次被拦截的调用创建 OpenTelemetry span。
type TracingAspect struct {
	tracer trace.Tracer
	kind   trace.SpanKind
}

// TracingOption configures a TracingAspect.
type TracingOption func(*TracingAspect)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(a *TracingAspect) {
		a.tracer = tp.Tracer(TracerName)
	}
}

// WithSpanKind sets the kind of the created spans, defaulting to internal.
func WithSpanKind(kind trace.SpanKind) TracingOption {
	return func(a *TracingAspect) {
		a.kind = kind
	}
}

// NewTracingAspect creates a tracing aspect on the global tracer provider.
func NewTracingAspect(opts ...TracingOption) *TracingAspect {
	a := &TracingAspect{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(TracerName)
	}
	return a
}

// Order 15, outside metrics so the span covers the measured call.
func (a *TracingAspect) Order() int {
	return 15
}

func (a *TracingAspect) Invoke(ctx context.Context, inv types.Invocation) ([]any, error) {
	ctx, span := a.tracer.Start(ctx, methodKey(inv),
		trace.WithSpanKind(a.kind),
		trace.WithAttributes(
			attrComponent.String(types.TypeName(inv.TargetType())),
			attrMethod.String(inv.Method().Name),
			attrArgs.Int(len(inv.Arguments())),
		))
	defer span.End()

	results, err := inv.Proceed(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var panicErr *types.PanicError
		if errors.As(err, &panicErr) {
			span.SetAttributes(attribute.String("weave.panic.stack", panicErr.Stack))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return results, err
}
