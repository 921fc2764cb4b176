package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "stockbi/internal/core/context"
)

func TestInfo_EnrichesFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := WithLogger(context.Background(), base)
	ctx = appctx.WithJob(ctx, "sales:month:2024-03")

	Info(ctx, "aggregation finished", "rows", 1)
	Debug(ctx, "not recorded")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "sales:month:2024-03", fields["job"])
	assert.Equal(t, int64(1), fields["rows"])
	assert.NotEmpty(t, fields["trace_id"])
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := (&Logger{zap.New(core).Sugar()}).WithComponent("scheduler")

	l.Infow("tick")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "scheduler", logs.All()[0].ContextMap()["component"])
}

func TestWithContext_AddsSpanID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithLogger(ctx, &Logger{zap.New(core).Sugar()})

	Warn(ctx, "slow aggregation")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, sc.SpanID().String(), logs.All()[0].ContextMap()["span_id"])
	assert.NotContains(t, logs.All()[0].ContextMap(), "trace_id")
}
