package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for stock spans.
const TracerName = "stockcore"

// Span attribute keys shared by the workers and relays.
const (
	SpanAttrEventID     = "event.id"
	SpanAttrEventType   = "event.type"
	SpanAttrTenantID    = "tenant_id"
	SpanAttrAggregateID = "aggregate_id"
	SpanAttrJob         = "job"
	SpanAttrBatchSize   = "batch_size"
	SpanAttrProcessed   = "processed"
)

// SpanOption adjusts a span before it starts.
type SpanOption func(*spanStart)

type spanStart struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

func WithAttribute(key string, value any) SpanOption {
	return func(s *spanStart) { s.attrs = append(s.attrs, toAttribute(key, value)) }
}

func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(s *spanStart) { s.kind = kind }
}

// WithEvent tags the span with the identity of a domain event.
func WithEvent(event shared.DomainEvent) SpanOption {
	return func(s *spanStart) {
		s.attrs = append(s.attrs,
			attribute.String(SpanAttrEventID, event.EventID().String()),
			attribute.String(SpanAttrEventType, event.EventType()),
			attribute.String(SpanAttrTenantID, event.TenantID().String()),
			attribute.String(SpanAttrAggregateID, event.AggregateID().String()),
		)
	}
}

// WithOutboxEntry tags the span with the event an outbox row carries.
func WithOutboxEntry(entry *shared.OutboxEntry) SpanOption {
	return func(s *spanStart) {
		s.attrs = append(s.attrs,
			attribute.String(SpanAttrEventID, entry.EventID.String()),
			attribute.String(SpanAttrEventType, entry.EventType),
			attribute.String(SpanAttrTenantID, entry.TenantID.String()),
			attribute.String(SpanAttrAggregateID, entry.AggregateID.String()),
			attribute.Int("outbox.retry_count", entry.RetryCount),
		)
	}
}

// StartSpan starts a span on the global tracer provider. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "outbox.deliver", telemetry.WithOutboxEntry(entry))
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	s := spanStart{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&s)
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(s.kind), trace.WithAttributes(s.attrs...))
}

// StartServiceSpan names the span {component}.{operation}, e.g. "sweep.reservation_expiry".
func StartServiceSpan(ctx context.Context, component, operation string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, component+"."+operation, opts...)
}

// SetAttributes adds alternating key/value pairs to span. Non-string keys are skipped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span != nil {
		span.SetAttributes(pairs(keyValues)...)
	}
}

// RecordError records err on span and marks the span failed.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// AddEvent adds a span event with alternating key/value attributes.
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(pairs(keyValues)...))
	}
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

func pairs(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
