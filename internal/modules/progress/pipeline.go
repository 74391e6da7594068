package progress

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/observability"
	"github.com/yungbote/neurobridge-progress/internal/platform/ctxutil"
)

// stepResult is what a pipeline step hands to the next one.
type stepResult[T any] struct {
	Value T
	Err   error
}

func (r stepResult[T]) ok() bool { return r.Err == nil }

// runStep executes fn inside a progress.<step> span, records its duration and
// turns a panic into an internal error.
func runStep[T any](ctx context.Context, u Usecases, step string, fn func(ctx context.Context) (T, error)) (res stepResult[T]) {
	ctx, span := observability.Tracer().Start(ctx, "progress."+step)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = stepResult[T]{Err: domainagg.NewError(domainagg.CodeInternal, "progress."+step, fmt.Sprintf("panic: %v", p), nil)}
		}
		status := "success"
		if res.Err != nil {
			status = string(domainagg.CodeOf(res.Err))
			if status == "" {
				status = "failure"
			}
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.SetAttributes(attribute.String("progress.step.status", status))
		span.End()
		u.deps.Metrics.ObserveProgressStep(step, status, time.Since(start))
	}()
	v, err := fn(ctx)
	return stepResult[T]{Value: v, Err: err}
}

// isolate runs a step whose failure must not change the outcome of the call.
// Errors are logged, counted and returned as a SideEffectError in the result.
func isolate[T any](ctx context.Context, u Usecases, step string, kv []interface{}, fn func(ctx context.Context) (T, error)) stepResult[T] {
	res := runStep(ctx, u, step, fn)
	if res.ok() {
		return res
	}
	fields := append([]interface{}{"step", step}, kv...)
	fields = append(fields, ctxutil.TraceFields(ctx)...)
	fields = append(fields, "error", res.Err)
	u.deps.Log.Warn("progress side effect failed", fields...)
	u.deps.Metrics.IncSideEffectFailure(step)
	res.Err = &SideEffectError{Step: step, Err: res.Err}
	return res
}
