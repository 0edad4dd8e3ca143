package event

import (
	"context"
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"go.uber.org/zap"
)

// Delivery outcomes reported to a DeliveryRecorder.
const (
	DeliveryHandled   = "handled"
	DeliveryDuplicate = "duplicate"
	DeliveryFailed    = "failed"
)

// DeliveryRecorder observes what a consumer did with each delivered event.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, consumer, eventType, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDelivery(context.Context, string, string, string) {}

// IdempotentHandler makes a consumer safe against outbox redelivery: the inner handler
// runs at most once per event ID. Keys are prefixed with the consumer name so that the
// reorder trigger and the NATS relay can share one store.
type IdempotentHandler struct {
	inner    shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	consumer string
	recorder DeliveryRecorder
	logger   *zap.Logger
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets TTL and the on/off switch
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithHandlerName sets the consumer name used as key prefix. It defaults to the inner
// handler's Go type.
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.consumer = name
	}
}

// WithDeliveryRecorder reports every outcome to r.
func WithDeliveryRecorder(r DeliveryRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewIdempotentHandler wraps inner.
func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		inner:    inner,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		consumer: fmt.Sprintf("%T", inner),
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the consumer name.
func (h *IdempotentHandler) Name() string {
	return h.consumer
}

// EventTypes delegates to the inner handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

func (h *IdempotentHandler) key(event shared.DomainEvent) string {
	return h.consumer + ":" + event.EventID().String()
}

// Handle runs the inner handler unless this consumer already handled the event.
// When the store is unreachable the event is handled anyway: stock consumers tolerate
// a repeat better than a gap. A failed attempt releases the key for the next retry.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.run(ctx, event, "")
	}

	key := h.key(event)
	first, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("Idempotency store unavailable, handling event anyway",
			zap.String("consumer", h.consumer),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	case !first:
		h.recorder.RecordDelivery(ctx, h.consumer, event.EventType(), DeliveryDuplicate)
		h.logger.Debug("Skipping redelivered event",
			zap.String("consumer", h.consumer),
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}
	return h.run(ctx, event, key)
}

func (h *IdempotentHandler) run(ctx context.Context, event shared.DomainEvent, key string) error {
	if err := h.inner.Handle(ctx, event); err != nil {
		h.recorder.RecordDelivery(ctx, h.consumer, event.EventType(), DeliveryFailed)
		h.logger.Error("Event consumer failed",
			zap.String("consumer", h.consumer),
			zap.String("tenant_id", event.TenantID().String()),
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		if key != "" {
			if uerr := h.store.Unmark(ctx, key); uerr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(uerr))
			}
		}
		return err
	}
	h.recorder.RecordDelivery(ctx, h.consumer, event.EventType(), DeliveryHandled)
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
