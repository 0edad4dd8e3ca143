package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeStockChanged              = "StockChanged"
	EventTypeStockMovementRecorded     = "StockMovementRecorded"
	EventTypeReservationCreated        = "ReservationCreated"
	EventTypeReservationFulfilled      = "ReservationFulfilled"
	EventTypeReservationCancelled      = "ReservationCancelled"
	EventTypeReservationExpired        = "ReservationExpired"
	EventTypeReservationExtended       = "ReservationExtended"
	EventTypeTransferStatusChanged     = "TransferStatusChanged"
	EventTypeTransferShipped           = "TransferShipped"
	EventTypeTransferReceived          = "TransferReceived"
	EventTypeStockCountStatusChanged   = "StockCountStatusChanged"
	EventTypeAdjustmentStatusChanged   = "AdjustmentStatusChanged"
	EventTypeLotCreated                = "LotCreated"
	EventTypeLotApproved               = "LotApproved"
	EventTypeLotQuarantined            = "LotQuarantined"
	EventTypeLotReleasedFromQuarantine = "LotReleasedFromQuarantine"
	EventTypeLotConsumed               = "LotConsumed"
	EventTypeSerialStatusChanged       = "SerialStatusChanged"
	EventTypeSuggestionStatusChanged   = "SuggestionStatusChanged"
)

// StockChangedEvent is raised by every ledger mutation.
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID       `json:"product_id"`
	VariantID        uuid.UUID       `json:"variant_id"`
	WarehouseID      uuid.UUID       `json:"warehouse_id"`
	LocationID       uuid.UUID       `json:"location_id"`
	QuantityDelta    decimal.Decimal `json:"quantity_delta"`
	ReservedDelta    decimal.Decimal `json:"reserved_delta"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	Available        decimal.Decimal `json:"available"`
}

// NewStockChangedEvent captures the row state after a delta.
func NewStockChangedEvent(s *Stock, quantityDelta, reservedDelta decimal.Decimal) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeStock, s.ID, s.TenantID),
		ProductID:        s.ProductID,
		VariantID:        s.VariantID,
		WarehouseID:      s.WarehouseID,
		LocationID:       s.LocationID,
		QuantityDelta:    quantityDelta,
		ReservedDelta:    reservedDelta,
		Quantity:         s.Quantity,
		ReservedQuantity: s.ReservedQuantity,
		Available:        s.Available(),
	}
}

// StockMovementRecordedEvent is raised when a journal entry is appended.
type StockMovementRecordedEvent struct {
	shared.BaseDomainEvent
	ProductID          uuid.UUID       `json:"product_id"`
	WarehouseID        uuid.UUID       `json:"warehouse_id"`
	MovementType       MovementType    `json:"movement_type"`
	Quantity           decimal.Decimal `json:"quantity"`
	ReferenceType      string          `json:"reference_type,omitempty"`
	ReferenceNumber    string          `json:"reference_number,omitempty"`
	ReversedMovementID *uuid.UUID      `json:"reversed_movement_id,omitempty"`
}

// NewStockMovementRecordedEvent describes a newly journaled movement.
func NewStockMovementRecordedEvent(m *StockMovement) *StockMovementRecordedEvent {
	return &StockMovementRecordedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeStockMovementRecorded, "StockMovement", m.ID, m.TenantID),
		ProductID:          m.ProductID,
		WarehouseID:        m.WarehouseID,
		MovementType:       m.MovementType,
		Quantity:           m.Quantity,
		ReferenceType:      m.Reference.Type,
		ReferenceNumber:    m.Reference.Number,
		ReversedMovementID: m.ReversedMovementID,
	}
}

// ReservationEvent is raised on every reservation status change.
type ReservationEvent struct {
	shared.BaseDomainEvent
	ReservationNumber string            `json:"reservation_number"`
	ProductID         uuid.UUID         `json:"product_id"`
	WarehouseID       uuid.UUID         `json:"warehouse_id"`
	Status            ReservationStatus `json:"status"`
	Quantity          decimal.Decimal   `json:"quantity"`
	Remaining         decimal.Decimal   `json:"remaining"`
	Reason            string            `json:"reason,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	PreviousExpiresAt *time.Time        `json:"previous_expires_at,omitempty"`
}

func newReservationEvent(r *StockReservation, eventType string, quantity decimal.Decimal) *ReservationEvent {
	return &ReservationEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypeReservation, r.ID, r.TenantID),
		ReservationNumber: r.ReservationNumber,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		Status:            r.Status,
		Quantity:          quantity,
		Remaining:         r.Remaining(),
		ExpiresAt:         r.ExpiresAt,
	}
}

// NewReservationCreatedEvent reports a new hold.
func NewReservationCreatedEvent(r *StockReservation) *ReservationEvent {
	return newReservationEvent(r, EventTypeReservationCreated, r.Quantity)
}

// NewReservationFulfilledEvent reports a full or partial fulfillment.
func NewReservationFulfilledEvent(r *StockReservation, quantity decimal.Decimal) *ReservationEvent {
	return newReservationEvent(r, EventTypeReservationFulfilled, quantity)
}

// NewReservationReleasedEvent reports a cancel or expiry and the released amount.
func NewReservationReleasedEvent(r *StockReservation, eventType string, released decimal.Decimal, reason string) *ReservationEvent {
	e := newReservationEvent(r, eventType, released)
	e.Reason = reason
	return e
}

// NewReservationExtendedEvent reports a new expiry.
func NewReservationExtendedEvent(r *StockReservation, previous *time.Time) *ReservationEvent {
	e := newReservationEvent(r, EventTypeReservationExtended, r.Remaining())
	e.PreviousExpiresAt = previous
	return e
}

// TransferStatusChangedEvent is raised on every transfer transition.
type TransferStatusChangedEvent struct {
	shared.BaseDomainEvent
	TransferNumber         string         `json:"transfer_number"`
	SourceWarehouseID      uuid.UUID      `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID      `json:"destination_warehouse_id"`
	FromStatus             TransferStatus `json:"from_status,omitempty"`
	ToStatus               TransferStatus `json:"to_status"`
	Reason                 string         `json:"reason,omitempty"`
}

// NewTransferStatusChangedEvent reports a transfer transition.
func NewTransferStatusChangedEvent(t *StockTransfer, from, to TransferStatus, reason string) *TransferStatusChangedEvent {
	return &TransferStatusChangedEvent{
		BaseDomainEvent:        shared.NewBaseDomainEvent(EventTypeTransferStatusChanged, AggregateTypeTransfer, t.ID, t.TenantID),
		TransferNumber:         t.TransferNumber,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		FromStatus:             from,
		ToStatus:               to,
		Reason:                 reason,
	}
}

// TransferLine is the per-item payload of ship and receive events.
type TransferLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Shipped   decimal.Decimal `json:"shipped"`
	Received  decimal.Decimal `json:"received"`
	Damaged   decimal.Decimal `json:"damaged"`
}

// TransferMovedEvent is raised when goods leave or arrive.
type TransferMovedEvent struct {
	shared.BaseDomainEvent
	TransferNumber string          `json:"transfer_number"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	Lines          []TransferLine  `json:"lines"`
	TotalDamaged   decimal.Decimal `json:"total_damaged"`
}

func newTransferMovedEvent(t *StockTransfer, eventType string, warehouseID uuid.UUID) *TransferMovedEvent {
	lines := make([]TransferLine, 0, len(t.Items))
	for _, it := range t.Items {
		lines = append(lines, TransferLine{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			Shipped:   it.ShippedQuantity,
			Received:  it.ReceivedQuantity,
			Damaged:   it.DamagedQuantity,
		})
	}
	return &TransferMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeTransfer, t.ID, t.TenantID),
		TransferNumber:  t.TransferNumber,
		WarehouseID:     warehouseID,
		Lines:           lines,
		TotalDamaged:    t.TotalDamaged(),
	}
}

// NewTransferShippedEvent reports goods leaving the source warehouse.
func NewTransferShippedEvent(t *StockTransfer) *TransferMovedEvent {
	return newTransferMovedEvent(t, EventTypeTransferShipped, t.SourceWarehouseID)
}

// NewTransferReceivedEvent reports goods arriving, including damage.
func NewTransferReceivedEvent(t *StockTransfer) *TransferMovedEvent {
	return newTransferMovedEvent(t, EventTypeTransferReceived, t.DestinationWarehouseID)
}

// StockCountStatusChangedEvent is raised on every count transition.
type StockCountStatusChangedEvent struct {
	shared.BaseDomainEvent
	CountNumber   string           `json:"count_number"`
	WarehouseID   uuid.UUID        `json:"warehouse_id"`
	FromStatus    StockCountStatus `json:"from_status"`
	ToStatus      StockCountStatus `json:"to_status"`
	VarianceItems int              `json:"variance_items"`
	AdjustmentID  *uuid.UUID       `json:"adjustment_id,omitempty"`
}

// NewStockCountStatusChangedEvent reports a count transition.
func NewStockCountStatusChangedEvent(c *StockCount, from StockCountStatus) *StockCountStatusChangedEvent {
	return &StockCountStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockCountStatusChanged, AggregateTypeStockCount, c.ID, c.TenantID),
		CountNumber:     c.CountNumber,
		WarehouseID:     c.WarehouseID,
		FromStatus:      from,
		ToStatus:        c.Status,
		VarianceItems:   len(c.VarianceItems()),
		AdjustmentID:    c.AdjustmentID,
	}
}

// AdjustmentStatusChangedEvent is raised on every adjustment transition.
type AdjustmentStatusChangedEvent struct {
	shared.BaseDomainEvent
	AdjustmentNumber string           `json:"adjustment_number"`
	WarehouseID      uuid.UUID        `json:"warehouse_id"`
	AdjustmentType   AdjustmentType   `json:"adjustment_type"`
	FromStatus       AdjustmentStatus `json:"from_status"`
	ToStatus         AdjustmentStatus `json:"to_status"`
	TotalCostImpact  decimal.Decimal  `json:"total_cost_impact"`
	StockCountID     *uuid.UUID       `json:"stock_count_id,omitempty"`
}

// NewAdjustmentStatusChangedEvent reports an adjustment transition.
func NewAdjustmentStatusChangedEvent(a *InventoryAdjustment, from AdjustmentStatus) *AdjustmentStatusChangedEvent {
	return &AdjustmentStatusChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeAdjustmentStatusChanged, AggregateTypeAdjustment, a.ID, a.TenantID),
		AdjustmentNumber: a.AdjustmentNumber,
		WarehouseID:      a.WarehouseID,
		AdjustmentType:   a.AdjustmentType,
		FromStatus:       from,
		ToStatus:         a.Status,
		TotalCostImpact:  a.TotalCostImpact(),
		StockCountID:     a.StockCountID,
	}
}

// LotEvent covers the lot lifecycle events.
type LotEvent struct {
	shared.BaseDomainEvent
	ProductID       uuid.UUID       `json:"product_id"`
	LotNumber       string          `json:"lot_number"`
	Status          LotStatus       `json:"status"`
	Quantity        decimal.Decimal `json:"quantity"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

// NewLotEvent builds a lot lifecycle event of eventType.
func NewLotEvent(l *LotBatch, eventType string, quantity decimal.Decimal, reason string) *LotEvent {
	return &LotEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeLotBatch, l.ID, l.TenantID),
		ProductID:       l.ProductID,
		LotNumber:       l.LotNumber,
		Status:          l.Status,
		Quantity:        quantity,
		CurrentQuantity: l.CurrentQuantity,
		ExpiryDate:      l.ExpiryDate,
		Reason:          reason,
	}
}

// SerialStatusChangedEvent is raised on every serial transition.
type SerialStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID    `json:"product_id"`
	Serial     string       `json:"serial"`
	FromStatus SerialStatus `json:"from_status,omitempty"`
	ToStatus   SerialStatus `json:"to_status"`
	CustomerID *uuid.UUID   `json:"customer_id,omitempty"`
}

// NewSerialStatusChangedEvent reports a serial transition.
func NewSerialStatusChangedEvent(s *SerialNumber, from SerialStatus) *SerialStatusChangedEvent {
	return &SerialStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSerialStatusChanged, AggregateTypeSerialNumber, s.ID, s.TenantID),
		ProductID:       s.ProductID,
		Serial:          s.Serial,
		FromStatus:      from,
		ToStatus:        s.Status,
		CustomerID:      s.CustomerID,
	}
}

// SuggestionStatusChangedEvent is raised when a suggestion is created or changes status.
type SuggestionStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID        `json:"product_id"`
	WarehouseID       *uuid.UUID       `json:"warehouse_id,omitempty"`
	RuleID            *uuid.UUID       `json:"rule_id,omitempty"`
	FromStatus        SuggestionStatus `json:"from_status,omitempty"`
	ToStatus          SuggestionStatus `json:"to_status"`
	SuggestedQuantity decimal.Decimal  `json:"suggested_quantity"`
	PurchaseOrderID   *uuid.UUID       `json:"purchase_order_id,omitempty"`
}

// NewSuggestionStatusChangedEvent reports a suggestion transition.
func NewSuggestionStatusChangedEvent(s *ReorderSuggestion, from SuggestionStatus) *SuggestionStatusChangedEvent {
	return &SuggestionStatusChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeSuggestionStatusChanged, AggregateTypeReorderSuggestion, s.ID, s.TenantID),
		ProductID:         s.ProductID,
		WarehouseID:       s.WarehouseID,
		RuleID:            s.TriggeredByRuleID,
		FromStatus:        from,
		ToStatus:          s.Status,
		SuggestedQuantity: s.SuggestedQuantity,
		PurchaseOrderID:   s.PurchaseOrderID,
	}
}

// EventPrototypes maps each event type to a zero value of its payload type, for deserialization.
func EventPrototypes() map[string]shared.DomainEvent {
	return map[string]shared.DomainEvent{
		EventTypeStockChanged:              &StockChangedEvent{},
		EventTypeStockMovementRecorded:     &StockMovementRecordedEvent{},
		EventTypeReservationCreated:        &ReservationEvent{},
		EventTypeReservationFulfilled:      &ReservationEvent{},
		EventTypeReservationCancelled:      &ReservationEvent{},
		EventTypeReservationExpired:        &ReservationEvent{},
		EventTypeReservationExtended:       &ReservationEvent{},
		EventTypeTransferStatusChanged:     &TransferStatusChangedEvent{},
		EventTypeTransferShipped:           &TransferMovedEvent{},
		EventTypeTransferReceived:          &TransferMovedEvent{},
		EventTypeStockCountStatusChanged:   &StockCountStatusChangedEvent{},
		EventTypeAdjustmentStatusChanged:   &AdjustmentStatusChangedEvent{},
		EventTypeLotCreated:                &LotEvent{},
		EventTypeLotApproved:               &LotEvent{},
		EventTypeLotQuarantined:            &LotEvent{},
		EventTypeLotReleasedFromQuarantine: &LotEvent{},
		EventTypeLotConsumed:               &LotEvent{},
		EventTypeSerialStatusChanged:       &SerialStatusChangedEvent{},
		EventTypeSuggestionStatusChanged:   &SuggestionStatusChangedEvent{},
	}
}
