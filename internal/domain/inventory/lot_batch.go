package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeLotBatch is the aggregate type of lots.
const AggregateTypeLotBatch = "LotBatch"

// LotStatus is the stored lifecycle state of a lot. Expired is only ever derived.
type LotStatus string

const (
	LotStatusPending     LotStatus = "PENDING"
	LotStatusApproved    LotStatus = "APPROVED"
	LotStatusQuarantined LotStatus = "QUARANTINED"
	LotStatusConsumed    LotStatus = "CONSUMED"
	LotStatusExpired     LotStatus = "EXPIRED"
)

// LotBatch is a traceable receipt of a product sharing quality and expiry attributes.
type LotBatch struct {
	shared.TenantAggregateRoot
	ProductID         uuid.UUID
	LotNumber         string
	Status            LotStatus
	InitialQuantity   decimal.Decimal
	CurrentQuantity   decimal.Decimal
	ReservedQuantity  decimal.Decimal
	SupplierID        *uuid.UUID
	SupplierLotNumber string
	ManufacturedDate  *time.Time
	ReceivedDate      time.Time
	ExpiryDate        *time.Time
	QuarantineReason  string
	QuarantinedAt     *time.Time
	ApprovedAt        *time.Time
	ApprovedBy        *uuid.UUID
	Notes             string
}

// LotSpec describes a lot to register.
type LotSpec struct {
	ProductID         uuid.UUID
	LotNumber         string
	Quantity          decimal.Decimal
	SupplierID        *uuid.UUID
	SupplierLotNumber string
	ManufacturedDate  *time.Time
	ReceivedDate      *time.Time
	ExpiryDate        *time.Time
	Notes             string
}

// NewLotBatch registers a Pending lot.
func NewLotBatch(tenantID uuid.UUID, spec LotSpec) (*LotBatch, error) {
	number := strings.TrimSpace(spec.LotNumber)
	if number == "" {
		return nil, shared.NewValidationError("INVALID_NUMBER", "lot number is required")
	}
	if spec.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID is required")
	}
	if !spec.Quantity.IsPositive() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "lot quantity must be positive")
	}
	if spec.ManufacturedDate != nil && spec.ExpiryDate != nil && !spec.ExpiryDate.After(*spec.ManufacturedDate) {
		return nil, shared.NewValidationError("INVALID_EXPIRY", "expiry date must be after the manufactured date")
	}
	received := time.Now().UTC()
	if spec.ReceivedDate != nil {
		received = spec.ReceivedDate.UTC()
	}
	lot := &LotBatch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           spec.ProductID,
		LotNumber:           number,
		Status:              LotStatusPending,
		InitialQuantity:     spec.Quantity,
		CurrentQuantity:     spec.Quantity,
		ReservedQuantity:    decimal.Zero,
		SupplierID:          spec.SupplierID,
		SupplierLotNumber:   spec.SupplierLotNumber,
		ManufacturedDate:    spec.ManufacturedDate,
		ReceivedDate:        received,
		ExpiryDate:          spec.ExpiryDate,
		Notes:               spec.Notes,
	}
	lot.AddDomainEvent(NewLotEvent(lot, EventTypeLotCreated, decimal.Zero, ""))
	return lot, nil
}

// IsExpired reports whether the expiry date has passed at now.
func (l *LotBatch) IsExpired(now time.Time) bool {
	return l.ExpiryDate != nil && !l.ExpiryDate.After(now)
}

// EffectiveStatus derives Expired for non-terminal lots past their expiry.
func (l *LotBatch) EffectiveStatus(now time.Time) LotStatus {
	if l.Status != LotStatusConsumed && l.IsExpired(now) {
		return LotStatusExpired
	}
	return l.Status
}

// DaysUntilExpiry returns whole days left, or -1 without an expiry date.
func (l *LotBatch) DaysUntilExpiry(now time.Time) int {
	if l.ExpiryDate == nil {
		return -1
	}
	return int(l.ExpiryDate.Sub(now).Hours() / 24)
}

// AvailableQuantity is current minus reserved.
func (l *LotBatch) AvailableQuantity() decimal.Decimal {
	return l.CurrentQuantity.Sub(l.ReservedQuantity)
}

func (l *LotBatch) isTerminal() bool {
	return l.Status == LotStatusConsumed
}

// Approve releases a Pending lot for use.
func (l *LotBatch) Approve(approvedBy uuid.UUID) error {
	if l.Status != LotStatusPending {
		return shared.NewInvalidTransitionError("lot", string(l.Status), "approve")
	}
	now := time.Now().UTC()
	l.Status = LotStatusApproved
	l.ApprovedAt = &now
	if approvedBy != uuid.Nil {
		l.ApprovedBy = &approvedBy
	}
	l.IncrementVersion()
	l.AddDomainEvent(NewLotEvent(l, EventTypeLotApproved, decimal.Zero, ""))
	return nil
}

// Quarantine blocks a non-terminal lot.
func (l *LotBatch) Quarantine(reason string) error {
	if l.isTerminal() || l.Status == LotStatusQuarantined {
		return shared.NewInvalidTransitionError("lot", string(l.Status), "quarantine")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("REASON_REQUIRED", "quarantine reason is required")
	}
	now := time.Now().UTC()
	l.Status = LotStatusQuarantined
	l.QuarantineReason = reason
	l.QuarantinedAt = &now
	l.IncrementVersion()
	l.AddDomainEvent(NewLotEvent(l, EventTypeLotQuarantined, decimal.Zero, reason))
	return nil
}

// ReleaseQuarantine returns a Quarantined lot to Approved.
func (l *LotBatch) ReleaseQuarantine() error {
	if l.Status != LotStatusQuarantined {
		return shared.NewInvalidTransitionError("lot", string(l.Status), "release quarantine of")
	}
	l.Status = LotStatusApproved
	l.QuarantineReason = ""
	l.QuarantinedAt = nil
	l.IncrementVersion()
	l.AddDomainEvent(NewLotEvent(l, EventTypeLotReleasedFromQuarantine, decimal.Zero, ""))
	return nil
}

// Reserve holds quantity of an Approved, unexpired lot.
func (l *LotBatch) Reserve(quantity decimal.Decimal, now time.Time) error {
	if status := l.EffectiveStatus(now); status != LotStatusApproved {
		return shared.NewInvalidTransitionError("lot", string(status), "reserve")
	}
	if !quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "reserve quantity must be positive")
	}
	if quantity.GreaterThan(l.AvailableQuantity()) {
		return shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_LOT_QUANTITY",
			fmt.Sprintf("lot %s has %s available, %s requested", l.LotNumber, l.AvailableQuantity(), quantity))
	}
	l.ReservedQuantity = l.ReservedQuantity.Add(quantity)
	l.IncrementVersion()
	return nil
}

// Release returns reserved quantity of the lot.
func (l *LotBatch) Release(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "release quantity must be positive")
	}
	if quantity.GreaterThan(l.ReservedQuantity) {
		return shared.NewDomainError(shared.KindInvalidQuantity, "RELEASE_EXCEEDS_RESERVED",
			fmt.Sprintf("release %s exceeds reserved %s", quantity, l.ReservedQuantity))
	}
	l.ReservedQuantity = l.ReservedQuantity.Sub(quantity)
	l.IncrementVersion()
	return nil
}

// Consume reduces the current quantity. It never takes current below reserved,
// and a lot that reaches zero becomes Consumed.
func (l *LotBatch) Consume(quantity decimal.Decimal) error {
	if l.isTerminal() {
		return shared.NewInvalidTransitionError("lot", string(l.Status), "consume")
	}
	if l.Status == LotStatusQuarantined {
		return shared.NewInvalidTransitionError("lot", string(l.Status), "consume")
	}
	if !quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "consume quantity must be positive")
	}
	remaining := l.CurrentQuantity.Sub(quantity)
	if remaining.LessThan(l.ReservedQuantity) {
		return shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_LOT_QUANTITY",
			fmt.Sprintf("consuming %s would leave %s below reserved %s", quantity, remaining, l.ReservedQuantity))
	}
	l.CurrentQuantity = remaining
	if l.CurrentQuantity.IsZero() {
		l.Status = LotStatusConsumed
	}
	l.IncrementVersion()
	l.AddDomainEvent(NewLotEvent(l, EventTypeLotConsumed, quantity, ""))
	return nil
}
