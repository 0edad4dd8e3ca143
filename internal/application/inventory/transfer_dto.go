package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTransferRequest opens a Draft transfer. Items may be supplied up front.
type CreateTransferRequest struct {
	TransferNumber         string                   `json:"transfer_number" validate:"max=50"`
	SourceWarehouseID      uuid.UUID                `json:"source_warehouse_id" validate:"required"`
	DestinationWarehouseID uuid.UUID                `json:"destination_warehouse_id" validate:"required"`
	Notes                  string                   `json:"notes" validate:"max=500"`
	Items                  []AddTransferItemRequest `json:"items" validate:"dive"`
	CreatedBy              *uuid.UUID               `json:"created_by"`
}

// AddTransferItemRequest adds one line to a Draft transfer.
type AddTransferItemRequest struct {
	ProductID             uuid.UUID       `json:"product_id" validate:"required"`
	VariantID             uuid.UUID       `json:"variant_id"`
	SourceLocationID      uuid.UUID       `json:"source_location_id"`
	DestinationLocationID uuid.UUID       `json:"destination_location_id"`
	Quantity              decimal.Decimal `json:"quantity"`
	UnitCost              decimal.Decimal `json:"unit_cost"`
	LotNumber             string          `json:"lot_number" validate:"max=100"`
	SerialNumber          string          `json:"serial_number" validate:"max=100"`
	Notes                 string          `json:"notes" validate:"max=500"`
}

func (r AddTransferItemRequest) spec() inventory.TransferItemSpec {
	return inventory.TransferItemSpec{
		ProductID:             r.ProductID,
		VariantID:             r.VariantID,
		SourceLocationID:      r.SourceLocationID,
		DestinationLocationID: r.DestinationLocationID,
		Quantity:              r.Quantity,
		UnitCost:              r.UnitCost,
		LotNumber:             r.LotNumber,
		SerialNumber:          r.SerialNumber,
		Notes:                 r.Notes,
	}
}

// ShipTransferRequest lists shipped quantities. No lines ships everything requested.
type ShipTransferRequest struct {
	Lines     []ShipLineRequest `json:"lines" validate:"dive"`
	ShippedBy *uuid.UUID        `json:"shipped_by"`
}

// ShipLineRequest is the shipped quantity of one item.
type ShipLineRequest struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceiveTransferRequest lists received and damaged quantities. No lines receives
// everything shipped.
type ReceiveTransferRequest struct {
	Lines      []ReceiveLineRequest `json:"lines" validate:"dive"`
	ReceivedBy *uuid.UUID           `json:"received_by"`
}

// ReceiveLineRequest is the outcome of one item at the destination.
type ReceiveLineRequest struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Received decimal.Decimal `json:"received"`
	Damaged  decimal.Decimal `json:"damaged"`
}

// TransferItemResponse represents a transfer line in responses
type TransferItemResponse struct {
	ID                    uuid.UUID       `json:"id"`
	ProductID             uuid.UUID       `json:"product_id"`
	VariantID             uuid.UUID       `json:"variant_id"`
	SourceLocationID      uuid.UUID       `json:"source_location_id"`
	DestinationLocationID uuid.UUID       `json:"destination_location_id"`
	RequestedQuantity     decimal.Decimal `json:"requested_quantity"`
	ShippedQuantity       decimal.Decimal `json:"shipped_quantity"`
	ReceivedQuantity      decimal.Decimal `json:"received_quantity"`
	DamagedQuantity       decimal.Decimal `json:"damaged_quantity"`
	UnitCost              decimal.Decimal `json:"unit_cost"`
	LotNumber             string          `json:"lot_number,omitempty"`
	SerialNumber          string          `json:"serial_number,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
}

// TransferResponse represents a transfer in responses
type TransferResponse struct {
	ID                     uuid.UUID              `json:"id"`
	TenantID               uuid.UUID              `json:"tenant_id"`
	TransferNumber         string                 `json:"transfer_number"`
	SourceWarehouseID      uuid.UUID              `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID              `json:"destination_warehouse_id"`
	Status                 string                 `json:"status"`
	Notes                  string                 `json:"notes,omitempty"`
	Items                  []TransferItemResponse `json:"items"`
	TotalDamaged           decimal.Decimal        `json:"total_damaged"`
	SubmittedAt            *time.Time             `json:"submitted_at,omitempty"`
	ApprovedAt             *time.Time             `json:"approved_at,omitempty"`
	ApprovedBy             *uuid.UUID             `json:"approved_by,omitempty"`
	ShippedAt              *time.Time             `json:"shipped_at,omitempty"`
	ReceivedAt             *time.Time             `json:"received_at,omitempty"`
	RejectedAt             *time.Time             `json:"rejected_at,omitempty"`
	RejectionReason        string                 `json:"rejection_reason,omitempty"`
	CancelledAt            *time.Time             `json:"cancelled_at,omitempty"`
	CancelReason           string                 `json:"cancel_reason,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
	Version                int                    `json:"version"`
}

// ToTransferResponse converts a domain StockTransfer to a response
func ToTransferResponse(t *inventory.StockTransfer) TransferResponse {
	items := make([]TransferItemResponse, len(t.Items))
	for i, it := range t.Items {
		items[i] = TransferItemResponse{
			ID:                    it.ID,
			ProductID:             it.ProductID,
			VariantID:             it.VariantID,
			SourceLocationID:      it.SourceLocationID,
			DestinationLocationID: it.DestinationLocationID,
			RequestedQuantity:     it.RequestedQuantity,
			ShippedQuantity:       it.ShippedQuantity,
			ReceivedQuantity:      it.ReceivedQuantity,
			DamagedQuantity:       it.DamagedQuantity,
			UnitCost:              it.UnitCost,
			LotNumber:             it.LotNumber,
			SerialNumber:          it.SerialNumber,
			Notes:                 it.Notes,
		}
	}
	return TransferResponse{
		ID:                     t.ID,
		TenantID:               t.TenantID,
		TransferNumber:         t.TransferNumber,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Status:                 string(t.Status),
		Notes:                  t.Notes,
		Items:                  items,
		TotalDamaged:           t.TotalDamaged(),
		SubmittedAt:            t.SubmittedAt,
		ApprovedAt:             t.ApprovedAt,
		ApprovedBy:             t.ApprovedBy,
		ShippedAt:              t.ShippedAt,
		ReceivedAt:             t.ReceivedAt,
		RejectedAt:             t.RejectedAt,
		RejectionReason:        t.RejectionReason,
		CancelledAt:            t.CancelledAt,
		CancelReason:           t.CancelReason,
		CreatedAt:              t.CreatedAt,
		Version:                t.Version,
	}
}

// TransferListFilter represents filter options for transfer lists
type TransferListFilter struct {
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Statuses    []string   `json:"statuses" validate:"dive,oneof=DRAFT SUBMITTED APPROVED SHIPPED RECEIVED REJECTED CANCELLED"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
}
