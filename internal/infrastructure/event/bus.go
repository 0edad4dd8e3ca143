package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/erp/stockcore/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches events synchronously to the handlers of this process.
// The outbox processor is its only publisher in production, so a handler error makes
// the outbox retry the whole entry; handlers that must not repeat work are wrapped in
// an IdempotentHandler.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
}

// handlerName prefers the consumer name of an IdempotentHandler over the Go type.
func handlerName(h shared.EventHandler) string {
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// Publish hands every event to every interested handler, even after one has failed,
// and returns the failures joined.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		for _, h := range b.registry.GetHandlers(event.EventType()) {
			err := b.dispatch(ctx, h, event)
			if err == nil {
				continue
			}
			b.logger.Error("Event handler failed",
				zap.String("handler", handlerName(h)),
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("tenant_id", event.TenantID().String()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", handlerName(h), err))
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling %s: %v", event.EventType(), r)
		}
	}()
	return h.Handle(ctx, event)
}

// Subscribe registers handler for eventTypes, or for its own EventTypes when none are given.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop flips the running flag. Dispatch is synchronous, so nothing is in flight once
// the outbox processor has stopped.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped")
	return nil
}

func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
