package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Retry policy for outbox delivery: 1s, 2s, 4s ... capped at MaxBackoff, dead after
// DefaultMaxRetries failed attempts.
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// OutboxEntry carries one serialized domain event from the transaction that raised it
// to the event bus. Every stock mutation writes its events through here, so consumers
// see an event exactly when its change committed.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an encoded event as a pending entry.
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (e *OutboxEntry) MarkSent(at time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &at
	e.UpdatedAt = at
}

// MarkFailed counts a failed attempt. The entry becomes due again after Backoff, or
// dead once MaxRetries attempts have failed.
func (e *OutboxEntry) MarkFailed(at time.Time, reason string) {
	e.RetryCount++
	if e.RetryCount >= e.MaxRetries {
		e.MarkDead(at, reason)
		return
	}
	e.Status = OutboxStatusFailed
	e.LastError = reason
	e.UpdatedAt = at
	next := at.Add(e.Backoff())
	e.NextRetryAt = &next
}

// MarkDead parks the entry for an operator. Used directly for payloads that can never
// be delivered, such as an event type this build does not know.
func (e *OutboxEntry) MarkDead(at time.Time, reason string) {
	e.Status = OutboxStatusDead
	e.LastError = reason
	e.NextRetryAt = nil
	e.UpdatedAt = at
}

// Backoff is the wait after the current number of failed attempts.
func (e *OutboxEntry) Backoff() time.Duration {
	if e.RetryCount <= 0 {
		return 0
	}
	d := DefaultBaseBackoff
	for i := 1; i < e.RetryCount; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	return d
}

// ResetForRetry gives a dead entry a fresh retry budget.
func (e *OutboxEntry) ResetForRetry(at time.Time) error {
	if e.Status != OutboxStatusDead {
		return NewInvalidTransitionError("outbox entry", string(e.Status), "retry")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = at
	return nil
}

// OutboxRepository persists outbox entries.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimBatch moves up to limit deliverable entries to PROCESSING and returns them.
	ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
