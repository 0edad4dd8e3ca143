package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType is the cause of a journal entry.
type MovementType string

const (
	MovementTypeReceipt         MovementType = "RECEIPT"
	MovementTypeIssue           MovementType = "ISSUE"
	MovementTypeTransferOut     MovementType = "TRANSFER_OUT"
	MovementTypeTransferIn      MovementType = "TRANSFER_IN"
	MovementTypeAdjustment      MovementType = "ADJUSTMENT"
	MovementTypeCountCorrection MovementType = "COUNT_CORRECTION"
	MovementTypeReversal        MovementType = "REVERSAL"
)

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeIssue, MovementTypeTransferOut, MovementTypeTransferIn,
		MovementTypeAdjustment, MovementTypeCountCorrection, MovementTypeReversal:
		return true
	}
	return false
}

// Reference document types written by the services.
const (
	ReferenceTypeReservation = "RESERVATION"
	ReferenceTypeTransfer    = "TRANSFER"
	ReferenceTypeStockCount  = "STOCK_COUNT"
	ReferenceTypeAdjustment  = "ADJUSTMENT"
	ReferenceTypeMovement    = "MOVEMENT"
	ReferenceTypeManual      = "MANUAL"
)

// Reference points at the business document that caused a change.
type Reference struct {
	Type   string    `json:"type,omitempty"`
	Number string    `json:"number,omitempty"`
	ID     uuid.UUID `json:"id,omitempty"`
}

// StockMovement is one immutable, signed journal entry. It affects exactly one ledger key:
// ToLocationID when Quantity is positive, FromLocationID when it is negative.
type StockMovement struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	ProductID          uuid.UUID
	VariantID          uuid.UUID
	WarehouseID        uuid.UUID
	FromLocationID     uuid.UUID
	ToLocationID       uuid.UUID
	Quantity           decimal.Decimal
	UnitCost           decimal.Decimal
	MovementType       MovementType
	Reference          Reference
	Reason             string
	LotNumber          string
	SerialNumber       string
	OccurredAt         time.Time
	ReversedMovementID *uuid.UUID
	CreatedBy          *uuid.UUID
	CreatedAt          time.Time
}

// MovementDetails carries the optional attributes of a new movement.
type MovementDetails struct {
	// CounterLocationID is the other side of an intra-warehouse move.
	CounterLocationID uuid.UUID
	UnitCost          decimal.Decimal
	Reference         Reference
	Reason            string
	LotNumber         string
	SerialNumber      string
	CreatedBy         *uuid.UUID
}

// NewStockMovement builds a journal entry for a signed quantity change at key.
func NewStockMovement(key StockKey, quantity decimal.Decimal, movementType MovementType, d MovementDetails) (*StockMovement, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError(shared.KindInvalidQuantity, "ZERO_MOVEMENT", "movement quantity cannot be zero")
	}
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("INVALID_MOVEMENT_TYPE", "unknown movement type "+string(movementType))
	}
	if d.UnitCost.IsNegative() {
		return nil, shared.NewValidationError("INVALID_COST", "unit cost cannot be negative")
	}

	now := time.Now().UTC()
	m := &StockMovement{
		ID:           uuid.New(),
		TenantID:     key.TenantID,
		ProductID:    key.ProductID,
		VariantID:    key.VariantID,
		WarehouseID:  key.WarehouseID,
		Quantity:     quantity,
		UnitCost:     d.UnitCost,
		MovementType: movementType,
		Reference:    d.Reference,
		Reason:       d.Reason,
		LotNumber:    d.LotNumber,
		SerialNumber: d.SerialNumber,
		OccurredAt:   now,
		CreatedBy:    d.CreatedBy,
		CreatedAt:    now,
	}
	if quantity.IsPositive() {
		m.ToLocationID = key.LocationID
		m.FromLocationID = d.CounterLocationID
	} else {
		m.FromLocationID = key.LocationID
		m.ToLocationID = d.CounterLocationID
	}
	return m, nil
}

// Key returns the ledger key the movement applied to.
func (m *StockMovement) Key() StockKey {
	loc := m.ToLocationID
	if m.Quantity.IsNegative() {
		loc = m.FromLocationID
	}
	return StockKey{
		TenantID:    m.TenantID,
		ProductID:   m.ProductID,
		VariantID:   m.VariantID,
		WarehouseID: m.WarehouseID,
		LocationID:  loc,
	}
}

// IsReversal reports whether the movement compensates another one.
func (m *StockMovement) IsReversal() bool {
	return m.ReversedMovementID != nil
}

// Reverse builds the compensating movement: quantity negated, locations swapped.
// Whether the movement was already reversed is checked against the journal by the caller.
func (m *StockMovement) Reverse(reason string, createdBy *uuid.UUID) (*StockMovement, error) {
	if m.IsReversal() || m.MovementType == MovementTypeReversal {
		return nil, shared.NewConflictError("REVERSAL_NOT_REVERSIBLE", "a reversal movement cannot be reversed")
	}
	now := time.Now().UTC()
	original := m.ID
	return &StockMovement{
		ID:                 uuid.New(),
		TenantID:           m.TenantID,
		ProductID:          m.ProductID,
		VariantID:          m.VariantID,
		WarehouseID:        m.WarehouseID,
		FromLocationID:     m.ToLocationID,
		ToLocationID:       m.FromLocationID,
		Quantity:           m.Quantity.Neg(),
		UnitCost:           m.UnitCost,
		MovementType:       MovementTypeReversal,
		Reference:          Reference{Type: ReferenceTypeMovement, Number: m.ID.String(), ID: m.ID},
		Reason:             reason,
		LotNumber:          m.LotNumber,
		SerialNumber:       m.SerialNumber,
		OccurredAt:         now,
		ReversedMovementID: &original,
		CreatedBy:          createdBy,
		CreatedAt:          now,
	}, nil
}

// MovementFilter narrows journal history queries. Zero values do not filter.
type MovementFilter struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	WarehouseID   uuid.UUID
	LocationID    *uuid.UUID
	MovementTypes []MovementType
	ReferenceType string
	ReferenceNum  string
	From          *time.Time
	To            *time.Time
}
