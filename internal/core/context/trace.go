// Package context carries request and job correlation data through context.Context.
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext contains request tracing information.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string

	// Job is set for background aggregation runs (e.g. "sales:month:2024-03").
	Job string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext() *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
	}
}

// WithJob starts a fresh trace for a background job run.
// An existing trace ID is kept so jobs triggered over HTTP stay correlated.
func WithJob(ctx context.Context, job string) context.Context {
	trace := NewTraceContext()
	if parent := GetTrace(ctx); parent != nil {
		trace.TraceID = parent.TraceID
		trace.RequestID = parent.RequestID
	}
	trace.Job = job
	return WithTrace(ctx, trace)
}
