package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds identity and audit timestamps.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch stamps UpdatedAt.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// AggregateRoot is implemented by every aggregate that records events and carries a version.
type AggregateRoot interface {
	GetID() uuid.UUID
	GetVersion() int
	IncrementVersion()
	ExpectedVersion() int
	MarkPersisted()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides versioning and an event buffer.
// Version is the optimistic concurrency token persisted with the row. It is bumped at most
// once between two saves, so several mutations in one command still produce one write.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	bumped       bool
	domainEvents []DomainEvent
}

// GetID returns the aggregate ID
func (a *BaseAggregateRoot) GetID() uuid.UUID {
	return a.ID
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the version and stamps UpdatedAt.
func (a *BaseAggregateRoot) IncrementVersion() {
	if !a.bumped {
		a.Version++
		a.bumped = true
	}
	a.Touch()
}

// ExpectedVersion is the version the stored row must have for an optimistic update to succeed.
func (a *BaseAggregateRoot) ExpectedVersion() int {
	if a.bumped {
		return a.Version - 1
	}
	return a.Version
}

// IsDirty reports whether the aggregate changed since it was loaded or saved.
func (a *BaseAggregateRoot) IsDirty() bool {
	return a.bumped
}

// MarkPersisted records that the current version is stored.
func (a *BaseAggregateRoot) MarkPersisted() {
	a.bumped = false
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// TenantAggregateRoot scopes an aggregate to a tenant.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
}

// NewTenantAggregateRoot creates a new tenant-scoped aggregate root at version 1.
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{
			BaseEntity: NewBaseEntity(),
			Version:    1,
		},
		TenantID: tenantID,
	}
}

// SetCreatedBy sets the creator user ID
func (t *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	t.CreatedBy = &userID
}
