package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockKeyRequest identifies a ledger row inside a command. Tenant is passed separately.
type StockKeyRequest struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	VariantID   uuid.UUID `json:"variant_id"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	LocationID  uuid.UUID `json:"location_id"`
}

// Key binds the request to a tenant.
func (r StockKeyRequest) Key(tenantID uuid.UUID) inventory.StockKey {
	return inventory.StockKey{
		TenantID:    tenantID,
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		WarehouseID: r.WarehouseID,
		LocationID:  r.LocationID,
	}
}

// StockResponse represents a ledger row in query results
type StockResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	VariantID        uuid.UUID       `json:"variant_id"`
	WarehouseID      uuid.UUID       `json:"warehouse_id"`
	LocationID       uuid.UUID       `json:"location_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	Available        decimal.Decimal `json:"available"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	TotalValue       decimal.Decimal `json:"total_value"`
	LastMovementAt   *time.Time      `json:"last_movement_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ToStockResponse converts a domain Stock to a response
func ToStockResponse(s *inventory.Stock) StockResponse {
	return StockResponse{
		ID:               s.ID,
		TenantID:         s.TenantID,
		ProductID:        s.ProductID,
		VariantID:        s.VariantID,
		WarehouseID:      s.WarehouseID,
		LocationID:       s.LocationID,
		Quantity:         s.Quantity,
		ReservedQuantity: s.ReservedQuantity,
		Available:        s.Available(),
		UnitCost:         s.UnitCost,
		TotalValue:       s.Quantity.Mul(s.UnitCost).Round(4),
		LastMovementAt:   s.LastMovementAt,
		UpdatedAt:        s.UpdatedAt,
		Version:          s.Version,
	}
}

// StockListFilter represents filter options for stock lists
type StockListFilter struct {
	ProductID   *uuid.UUID `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	LocationID  *uuid.UUID `json:"location_id"`
	NonZeroOnly bool       `json:"non_zero_only"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	OrderBy     string     `json:"order_by"`
	OrderDir    string     `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// AdjustStockRequest changes on-hand quantity at one key by a signed delta.
type AdjustStockRequest struct {
	StockKeyRequest
	Delta           decimal.Decimal `json:"delta"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Reason          string          `json:"reason" validate:"required,max=500"`
	ReferenceType   string          `json:"reference_type" validate:"max=50"`
	ReferenceNumber string          `json:"reference_number" validate:"max=100"`
	LotNumber       string          `json:"lot_number" validate:"max=100"`
	SerialNumber    string          `json:"serial_number" validate:"max=100"`
	CreatedBy       *uuid.UUID      `json:"created_by"`
}

// MoveStockRequest moves on-hand stock from one key to another.
// A nil destination warehouse keeps the source warehouse.
type MoveStockRequest struct {
	StockKeyRequest
	DestinationWarehouseID *uuid.UUID      `json:"destination_warehouse_id"`
	DestinationLocationID  uuid.UUID       `json:"destination_location_id"`
	Quantity               decimal.Decimal `json:"quantity"`
	Reason                 string          `json:"reason" validate:"max=500"`
	CreatedBy              *uuid.UUID      `json:"created_by"`
}

// ReverseMovementRequest compensates a journal entry.
type ReverseMovementRequest struct {
	MovementID uuid.UUID  `json:"movement_id" validate:"required"`
	Reason     string     `json:"reason" validate:"required,max=500"`
	CreatedBy  *uuid.UUID `json:"created_by"`
}

// MovementResponse represents a journal entry in query results
type MovementResponse struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	VariantID          uuid.UUID       `json:"variant_id"`
	WarehouseID        uuid.UUID       `json:"warehouse_id"`
	FromLocationID     uuid.UUID       `json:"from_location_id"`
	ToLocationID       uuid.UUID       `json:"to_location_id"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	MovementType       string          `json:"movement_type"`
	ReferenceType      string          `json:"reference_type,omitempty"`
	ReferenceNumber    string          `json:"reference_number,omitempty"`
	ReferenceID        uuid.UUID       `json:"reference_id,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	LotNumber          string          `json:"lot_number,omitempty"`
	SerialNumber       string          `json:"serial_number,omitempty"`
	OccurredAt         time.Time       `json:"occurred_at"`
	ReversedMovementID *uuid.UUID      `json:"reversed_movement_id,omitempty"`
	CreatedBy          *uuid.UUID      `json:"created_by,omitempty"`
}

// ToMovementResponse converts a domain StockMovement to a response
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		ProductID:          m.ProductID,
		VariantID:          m.VariantID,
		WarehouseID:        m.WarehouseID,
		FromLocationID:     m.FromLocationID,
		ToLocationID:       m.ToLocationID,
		Quantity:           m.Quantity,
		UnitCost:           m.UnitCost,
		MovementType:       string(m.MovementType),
		ReferenceType:      m.Reference.Type,
		ReferenceNumber:    m.Reference.Number,
		ReferenceID:        m.Reference.ID,
		Reason:             m.Reason,
		LotNumber:          m.LotNumber,
		SerialNumber:       m.SerialNumber,
		OccurredAt:         m.OccurredAt,
		ReversedMovementID: m.ReversedMovementID,
		CreatedBy:          m.CreatedBy,
	}
}

// MoveStockResponse carries both legs of a move.
type MoveStockResponse struct {
	Outbound    MovementResponse `json:"outbound"`
	Inbound     MovementResponse `json:"inbound"`
	Source      StockResponse    `json:"source"`
	Destination StockResponse    `json:"destination"`
}

// MovementListFilter represents filter options for journal history
type MovementListFilter struct {
	ProductID       uuid.UUID  `json:"product_id"`
	VariantID       *uuid.UUID `json:"variant_id"`
	WarehouseID     uuid.UUID  `json:"warehouse_id"`
	LocationID      *uuid.UUID `json:"location_id"`
	MovementTypes   []string   `json:"movement_types" validate:"dive,oneof=RECEIPT ISSUE TRANSFER_OUT TRANSFER_IN ADJUSTMENT COUNT_CORRECTION REVERSAL"`
	ReferenceType   string     `json:"reference_type"`
	ReferenceNumber string     `json:"reference_number"`
	From            *time.Time `json:"from"`
	To              *time.Time `json:"to"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
}

func (f MovementListFilter) domain() inventory.MovementFilter {
	types := make([]inventory.MovementType, 0, len(f.MovementTypes))
	for _, t := range f.MovementTypes {
		types = append(types, inventory.MovementType(t))
	}
	return inventory.MovementFilter{
		ProductID:     f.ProductID,
		VariantID:     f.VariantID,
		WarehouseID:   f.WarehouseID,
		LocationID:    f.LocationID,
		MovementTypes: types,
		ReferenceType: f.ReferenceType,
		ReferenceNum:  f.ReferenceNumber,
		From:          f.From,
		To:            f.To,
	}
}

// CreateReservationRequest holds stock against a pending demand.
// An empty number is generated; a nil expiry falls back to the configured default TTL.
type CreateReservationRequest struct {
	StockKeyRequest
	ReservationNumber string          `json:"reservation_number" validate:"max=50"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReservationType   string          `json:"reservation_type" validate:"omitempty,oneof=SALES_ORDER TRANSFER PRODUCTION MANUAL"`
	ReferenceType     string          `json:"reference_type" validate:"max=50"`
	ReferenceNumber   string          `json:"reference_number" validate:"max=100"`
	ReferenceID       uuid.UUID       `json:"reference_id"`
	ExpiresAt         *time.Time      `json:"expires_at"`
	Notes             string          `json:"notes" validate:"max=500"`
	CreatedBy         *uuid.UUID      `json:"created_by"`
}

// FulfillReservationRequest consumes part or all of a reservation. A nil quantity
// fulfills the remainder.
type FulfillReservationRequest struct {
	Quantity  *decimal.Decimal `json:"quantity"`
	CreatedBy *uuid.UUID       `json:"created_by"`
}

// ReservationResponse represents a reservation in query results
type ReservationResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	ReservationNumber string          `json:"reservation_number"`
	ProductID         uuid.UUID       `json:"product_id"`
	VariantID         uuid.UUID       `json:"variant_id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	FulfilledQuantity decimal.Decimal `json:"fulfilled_quantity"`
	Remaining         decimal.Decimal `json:"remaining"`
	Status            string          `json:"status"`
	ReservationType   string          `json:"reservation_type"`
	ReferenceType     string          `json:"reference_type,omitempty"`
	ReferenceNumber   string          `json:"reference_number,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	FulfilledAt       *time.Time      `json:"fulfilled_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	ExpiredAt         *time.Time      `json:"expired_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Version           int             `json:"version"`
}

// ToReservationResponse converts a domain StockReservation to a response
func ToReservationResponse(r *inventory.StockReservation) ReservationResponse {
	return ReservationResponse{
		ID:                r.ID,
		TenantID:          r.TenantID,
		ReservationNumber: r.ReservationNumber,
		ProductID:         r.ProductID,
		VariantID:         r.VariantID,
		WarehouseID:       r.WarehouseID,
		LocationID:        r.LocationID,
		Quantity:          r.Quantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Remaining:         r.Remaining(),
		Status:            string(r.Status),
		ReservationType:   string(r.ReservationType),
		ReferenceType:     r.Reference.Type,
		ReferenceNumber:   r.Reference.Number,
		Notes:             r.Notes,
		ExpiresAt:         r.ExpiresAt,
		CancelReason:      r.CancelReason,
		FulfilledAt:       r.FulfilledAt,
		CancelledAt:       r.CancelledAt,
		ExpiredAt:         r.ExpiredAt,
		CreatedAt:         r.CreatedAt,
		Version:           r.Version,
	}
}

// ReservationListFilter represents filter options for reservation lists
type ReservationListFilter struct {
	ProductID       *uuid.UUID `json:"product_id"`
	WarehouseID     *uuid.UUID `json:"warehouse_id"`
	Statuses        []string   `json:"statuses" validate:"dive,oneof=ACTIVE FULFILLED CANCELLED EXPIRED"`
	ReferenceNumber string     `json:"reference_number"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
}
