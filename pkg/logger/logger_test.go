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
)

func TestInit(t *testing.T) {
	restore := SetForTest(nil)
	defer restore()

	require.NoError(t, Init("production"))
	assert.NotNil(t, Get())

	require.NoError(t, Init("development"))
	assert.NotNil(t, Get())
}

func TestGet_FallbackWhenNotInitialized(t *testing.T) {
	restore := SetForTest(nil)
	defer restore()

	assert.NotNil(t, Get())
}

func TestWithContext_AddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := SetForTest(zap.New(core))
	defer restore()

	ctx := ContextWithCorrelationID(context.Background(), "req-123")
	WithContext(ctx).Info("resolved")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-123", fields["correlation_id"])
	_, hasTrace := fields["trace_id"]
	assert.False(t, hasTrace)
}

func TestWithContext_AddsTraceIDs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := SetForTest(zap.New(core))
	defer restore()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithContext(ctx).Info("priced")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestWithContext_PlainContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)
	restore := SetForTest(l)
	defer restore()

	assert.Same(t, l, WithContext(context.Background()))
	WithContext(context.Background()).Info("plain")
	assert.Empty(t, logs.All()[0].ContextMap())
}

func TestContextWithCorrelationID_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithCorrelationID(ctx, ""))
	assert.Equal(t, "", CorrelationIDFromContext(ctx))
}
