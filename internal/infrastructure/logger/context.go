package logger

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	tenantIDKey  contextKey = "tenant_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id for later log entries.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithTenant stores the tenant a unit of work runs for.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetTenantID retrieves the tenant from context, uuid.Nil when absent.
func GetTenantID(ctx context.Context) uuid.UUID {
	if tenantID, ok := ctx.Value(tenantIDKey).(uuid.UUID); ok {
		return tenantID
	}
	return uuid.Nil
}

// Fields returns the correlation fields carried by ctx: trace_id, span_id,
// request_id and tenant_id, each only when present.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if tenantID := GetTenantID(ctx); tenantID != uuid.Nil {
		fields = append(fields, zap.String("tenant_id", tenantID.String()))
	}
	return fields
}

// L returns the context logger enriched with the correlation fields of ctx.
//
//	logger.L(ctx).Info("reservation expired", zap.String("reservation_id", id))
func L(ctx context.Context) *zap.Logger {
	return With(ctx, FromContext(ctx))
}

// With enriches base with the correlation fields of ctx.
func With(ctx context.Context, base *zap.Logger) *zap.Logger {
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
