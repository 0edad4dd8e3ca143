package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate. Stock events are tenant scoped and name
// the aggregate that raised them, which the outbox and the NATS subject both rely on.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent is embedded by every stock event. The JSON names are the wire format
// of outbox payloads and relayed messages.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	At            time.Time `json:"timestamp"`
	Aggregate     uuid.UUID `json:"aggregate_id"`
	AggregateName string    `json:"aggregate_type"`
	Tenant        uuid.UUID `json:"tenant_id"`
}

func NewBaseDomainEvent(eventType, aggregateName string, aggregateID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		At:            time.Now().UTC(),
		Aggregate:     aggregateID,
		AggregateName: aggregateName,
		Tenant:        tenantID,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate }
func (e *BaseDomainEvent) AggregateType() string  { return e.AggregateName }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.Tenant }

// EventHandler consumes events from the bus. A handler listing no event types receives
// every event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher hands committed events to consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an EventPublisher that consumers subscribe to. It runs between Start and Stop.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes events to the outbox inside the caller's transaction, passed
// as the persistence layer's handle.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider any, events ...DomainEvent) error
}
