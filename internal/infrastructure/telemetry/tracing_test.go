package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "outbox.deliver",
		telemetry.WithAttribute(telemetry.SpanAttrEventType, "StockChanged"),
		telemetry.WithSpanKind(trace.SpanKindProducer),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "outbox.deliver", spans[0].Name())
	assert.Equal(t, trace.SpanKindProducer, spans[0].SpanKind())

	v, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrEventType)
	require.True(t, ok)
	assert.Equal(t, "StockChanged", v.AsString())
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "sweep", "reservation_expiry")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sweep.reservation_expiry", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	tenantID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrBatchSize, 100,
		42, "ignored",
		"dangling",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	assert.Len(t, attrs, 2)

	v, ok := attrValue(attrs, telemetry.SpanAttrTenantID)
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), v.AsString())

	v, ok = attrValue(attrs, telemetry.SpanAttrBatchSize)
	require.True(t, ok)
	assert.Equal(t, int64(100), v.AsInt64())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "boom", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestRecordError_NilErrorKeepsStatus(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, nil)
	telemetry.SetOK(span)
	span.End()

	assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.AddEvent(span, "batch_claimed", telemetry.SpanAttrProcessed, int64(3), "flag", true)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "batch_claimed", events[0].Name)
	assert.Len(t, events[0].Attributes, 2)
}

func TestNilSpanHelpersAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestWithOutboxEntry(t *testing.T) {
	sr := setupTestTracer(t)
	entry := &shared.OutboxEntry{
		EventID:     uuid.New(),
		EventType:   "inventory.stock.changed",
		TenantID:    uuid.New(),
		AggregateID: uuid.New(),
		RetryCount:  2,
	}

	_, span := telemetry.StartSpan(context.Background(), "outbox.deliver", telemetry.WithOutboxEntry(entry))
	span.End()

	attrs := sr.Ended()[0].Attributes()
	v, ok := attrValue(attrs, telemetry.SpanAttrTenantID)
	require.True(t, ok)
	assert.Equal(t, entry.TenantID.String(), v.AsString())
	v, ok = attrValue(attrs, "outbox.retry_count")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())
}
