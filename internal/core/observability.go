package core

import (
	"context"
	"time"
)

// MetricsRecorder receives the outcome of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the operation error if any.
type TraceSpan interface {
	End(err error)
}

type nopMetricsRecorder struct{}

func (nopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type nopTracer struct{}

type nopSpan struct{}

func (nopSpan) End(error) {}

func (nopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}
