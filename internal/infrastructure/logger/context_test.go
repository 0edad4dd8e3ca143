package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		base := zap.NewExample()
		assert.Same(t, base, FromContext(WithContext(context.Background(), base)))
	})

	t.Run("falls back to nop", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestL_AddsCorrelationFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	tenantID := uuid.New()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	ctx := WithContext(context.Background(), zap.New(core))
	ctx = trace.ContextWithSpanContext(ctx, spanCtx)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenant(ctx, tenantID)

	L(ctx).Info("reservation expired")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
}

func TestFields_EmptyContext(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))
	assert.Equal(t, uuid.Nil, GetTenantID(context.Background()))
	assert.Equal(t, "", GetRequestID(context.Background()))
}
