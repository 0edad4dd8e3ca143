package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeReservation is the aggregate type of reservations.
const AggregateTypeReservation = "StockReservation"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusFulfilled ReservationStatus = "FULFILLED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationStatusActive
}

// ReservationType names the kind of demand the hold is for.
type ReservationType string

const (
	ReservationTypeSalesOrder ReservationType = "SALES_ORDER"
	ReservationTypeTransfer   ReservationType = "TRANSFER"
	ReservationTypeProduction ReservationType = "PRODUCTION"
	ReservationTypeManual     ReservationType = "MANUAL"
)

// IsValid reports whether t is a known reservation type.
func (t ReservationType) IsValid() bool {
	switch t {
	case ReservationTypeSalesOrder, ReservationTypeTransfer, ReservationTypeProduction, ReservationTypeManual:
		return true
	}
	return false
}

// StockReservation holds part of a ledger row's on-hand quantity against a pending demand.
type StockReservation struct {
	shared.TenantAggregateRoot
	ReservationNumber string
	ProductID         uuid.UUID
	VariantID         uuid.UUID
	WarehouseID       uuid.UUID
	LocationID        uuid.UUID
	Quantity          decimal.Decimal
	FulfilledQuantity decimal.Decimal
	Status            ReservationStatus
	ReservationType   ReservationType
	Reference         Reference
	Notes             string
	ExpiresAt         *time.Time
	CancelReason      string
	FulfilledAt       *time.Time
	CancelledAt       *time.Time
	ExpiredAt         *time.Time
}

// NewStockReservation validates and creates an Active reservation.
func NewStockReservation(key StockKey, number string, quantity decimal.Decimal, reservationType ReservationType, ref Reference, expiresAt *time.Time, now time.Time) (*StockReservation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewValidationError("INVALID_NUMBER", "reservation number is required")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "reservation quantity must be positive")
	}
	if reservationType == "" {
		reservationType = ReservationTypeManual
	}
	if !reservationType.IsValid() {
		return nil, shared.NewValidationError("INVALID_RESERVATION_TYPE", "unknown reservation type "+string(reservationType))
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, shared.NewValidationError("EXPIRY_IN_PAST", "reservation expiry must be in the future")
	}

	r := &StockReservation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(key.TenantID),
		ReservationNumber:   number,
		ProductID:           key.ProductID,
		VariantID:           key.VariantID,
		WarehouseID:         key.WarehouseID,
		LocationID:          key.LocationID,
		Quantity:            quantity,
		FulfilledQuantity:   decimal.Zero,
		Status:              ReservationStatusActive,
		ReservationType:     reservationType,
		Reference:           ref,
		ExpiresAt:           expiresAt,
	}
	r.AddDomainEvent(NewReservationCreatedEvent(r))
	return r, nil
}

// GenerateReservationNumber returns RSV-<yyyymmdd>-<8 hex>.
func GenerateReservationNumber(now time.Time) string {
	return generateNumber("RSV", now)
}

func generateNumber(prefix string, now time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), strings.ToUpper(id[:8]))
}

// Key returns the ledger key the reservation holds against.
func (r *StockReservation) Key() StockKey {
	return StockKey{
		TenantID:    r.TenantID,
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		WarehouseID: r.WarehouseID,
		LocationID:  r.LocationID,
	}
}

// Remaining is the reserved amount not yet fulfilled.
func (r *StockReservation) Remaining() decimal.Decimal {
	return r.Quantity.Sub(r.FulfilledQuantity)
}

// IsDue reports whether an Active reservation's expiry has passed.
func (r *StockReservation) IsDue(now time.Time) bool {
	return r.Status == ReservationStatusActive && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// Fulfill consumes quantity of the hold. Fulfilling the whole remainder finishes the reservation.
func (r *StockReservation) Fulfill(quantity decimal.Decimal) error {
	if r.Status != ReservationStatusActive {
		return shared.NewInvalidTransitionError("reservation", string(r.Status), "fulfill")
	}
	if !quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "fulfill quantity must be positive")
	}
	if quantity.GreaterThan(r.Remaining()) {
		return shared.NewValidationError("EXCEEDS_REMAINING",
			fmt.Sprintf("fulfill quantity %s exceeds remaining %s", quantity, r.Remaining()))
	}

	r.FulfilledQuantity = r.FulfilledQuantity.Add(quantity)
	if r.FulfilledQuantity.Equal(r.Quantity) {
		now := time.Now().UTC()
		r.Status = ReservationStatusFulfilled
		r.FulfilledAt = &now
	}
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationFulfilledEvent(r, quantity))
	return nil
}

// Cancel releases the remainder. It returns the released amount and whether anything changed;
// cancelling a terminal reservation is a no-op.
func (r *StockReservation) Cancel(reason string) (decimal.Decimal, bool) {
	if r.Status.IsTerminal() {
		return decimal.Zero, false
	}
	released := r.Remaining()
	now := time.Now().UTC()
	r.Status = ReservationStatusCancelled
	r.CancelReason = reason
	r.CancelledAt = &now
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationReleasedEvent(r, EventTypeReservationCancelled, released, reason))
	return released, true
}

// Expire releases the remainder of a due reservation. Expiring a terminal reservation is a no-op.
func (r *StockReservation) Expire(now time.Time) (decimal.Decimal, bool, error) {
	if r.Status.IsTerminal() {
		return decimal.Zero, false, nil
	}
	if r.ExpiresAt == nil {
		return decimal.Zero, false, shared.NewValidationError("NO_EXPIRY", "reservation has no expiry")
	}
	if r.ExpiresAt.After(now) {
		return decimal.Zero, false, shared.NewValidationError("NOT_DUE", "reservation has not expired yet")
	}
	released := r.Remaining()
	ts := now.UTC()
	r.Status = ReservationStatusExpired
	r.ExpiredAt = &ts
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationReleasedEvent(r, EventTypeReservationExpired, released, ""))
	return released, true, nil
}

// Extend moves the expiry of an Active reservation to a later point.
func (r *StockReservation) Extend(newExpiry, now time.Time) error {
	if r.Status != ReservationStatusActive {
		return shared.NewInvalidTransitionError("reservation", string(r.Status), "extend")
	}
	if !newExpiry.After(now) {
		return shared.NewValidationError("EXPIRY_IN_PAST", "new expiry must be in the future")
	}
	old := r.ExpiresAt
	ts := newExpiry.UTC()
	r.ExpiresAt = &ts
	r.IncrementVersion()
	r.AddDomainEvent(NewReservationExtendedEvent(r, old))
	return nil
}
