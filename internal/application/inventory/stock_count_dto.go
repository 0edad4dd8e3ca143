package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateStockCountRequest opens a Draft count. With IncludeAllStock the items are taken
// from every ledger row in scope when the count starts.
type CreateStockCountRequest struct {
	CountNumber     string                  `json:"count_number" validate:"max=50"`
	WarehouseID     uuid.UUID               `json:"warehouse_id" validate:"required"`
	LocationID      uuid.UUID               `json:"location_id"`
	IncludeAllStock bool                    `json:"include_all_stock"`
	Notes           string                  `json:"notes" validate:"max=500"`
	Items           []StockCountItemRequest `json:"items" validate:"dive"`
	CreatedBy       *uuid.UUID              `json:"created_by"`
}

// StockCountItemRequest names one product to count.
type StockCountItemRequest struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	VariantID  uuid.UUID `json:"variant_id"`
	LocationID uuid.UUID `json:"location_id"`
}

// RecordCountItemRequest enters a counted quantity.
type RecordCountItemRequest struct {
	ItemID          uuid.UUID       `json:"item_id" validate:"required"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	CountedBy       *uuid.UUID      `json:"counted_by"`
	Notes           string          `json:"notes" validate:"max=500"`
}

// StockCountItemResponse represents a count item in responses
type StockCountItemResponse struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	VariantID       uuid.UUID        `json:"variant_id"`
	LocationID      uuid.UUID        `json:"location_id"`
	SystemQuantity  decimal.Decimal  `json:"system_quantity"`
	CountedQuantity *decimal.Decimal `json:"counted_quantity,omitempty"`
	Variance        decimal.Decimal  `json:"variance"`
	UnitCost        decimal.Decimal  `json:"unit_cost"`
	CountedAt       *time.Time       `json:"counted_at,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// StockCountResponse represents a count in responses
type StockCountResponse struct {
	ID              uuid.UUID                `json:"id"`
	TenantID        uuid.UUID                `json:"tenant_id"`
	CountNumber     string                   `json:"count_number"`
	WarehouseID     uuid.UUID                `json:"warehouse_id"`
	LocationID      uuid.UUID                `json:"location_id"`
	Status          string                   `json:"status"`
	IncludeAllStock bool                     `json:"include_all_stock"`
	Notes           string                   `json:"notes,omitempty"`
	Items           []StockCountItemResponse `json:"items"`
	CountedItems    int                      `json:"counted_items"`
	VarianceItems   int                      `json:"variance_items"`
	StartedAt       *time.Time               `json:"started_at,omitempty"`
	CompletedAt     *time.Time               `json:"completed_at,omitempty"`
	ApprovedAt      *time.Time               `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID               `json:"approved_by,omitempty"`
	CancelledAt     *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason    string                   `json:"cancel_reason,omitempty"`
	AdjustmentID    *uuid.UUID               `json:"adjustment_id,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	Version         int                      `json:"version"`
}

// ToStockCountResponse converts a domain StockCount to a response
func ToStockCountResponse(c *inventory.StockCount) StockCountResponse {
	items := make([]StockCountItemResponse, len(c.Items))
	counted, variances := 0, 0
	for i := range c.Items {
		it := &c.Items[i]
		if it.IsCounted() {
			counted++
		}
		if it.HasVariance() {
			variances++
		}
		items[i] = StockCountItemResponse{
			ID:              it.ID,
			ProductID:       it.ProductID,
			VariantID:       it.VariantID,
			LocationID:      it.LocationID,
			SystemQuantity:  it.SystemQuantity,
			CountedQuantity: it.CountedQuantity,
			Variance:        it.Variance(),
			UnitCost:        it.UnitCost,
			CountedAt:       it.CountedAt,
			Notes:           it.Notes,
		}
	}
	return StockCountResponse{
		ID:              c.ID,
		TenantID:        c.TenantID,
		CountNumber:     c.CountNumber,
		WarehouseID:     c.WarehouseID,
		LocationID:      c.LocationID,
		Status:          string(c.Status),
		IncludeAllStock: c.IncludeAllStock,
		Notes:           c.Notes,
		Items:           items,
		CountedItems:    counted,
		VarianceItems:   variances,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
		ApprovedAt:      c.ApprovedAt,
		ApprovedBy:      c.ApprovedBy,
		CancelledAt:     c.CancelledAt,
		CancelReason:    c.CancelReason,
		AdjustmentID:    c.AdjustmentID,
		CreatedAt:       c.CreatedAt,
		Version:         c.Version,
	}
}

// StockCountListFilter represents filter options for count lists
type StockCountListFilter struct {
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Statuses    []string   `json:"statuses" validate:"dive,oneof=DRAFT IN_PROGRESS COMPLETED APPROVED CANCELLED"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
}

// CreateAdjustmentRequest opens a Draft adjustment.
type CreateAdjustmentRequest struct {
	AdjustmentNumber string                     `json:"adjustment_number" validate:"max=50"`
	WarehouseID      uuid.UUID                  `json:"warehouse_id" validate:"required"`
	AdjustmentType   string                     `json:"adjustment_type" validate:"required,oneof=DAMAGE LOSS FOUND CORRECTION COUNT_VARIANCE WRITE_OFF"`
	Reason           string                     `json:"reason" validate:"max=500"`
	Items            []AddAdjustmentItemRequest `json:"items" validate:"dive"`
	CreatedBy        *uuid.UUID                 `json:"created_by"`
}

// AddAdjustmentItemRequest adds one corrected product. A nil system quantity is read
// from the ledger; a nil unit cost uses the ledger's average cost.
type AddAdjustmentItemRequest struct {
	ProductID      uuid.UUID        `json:"product_id" validate:"required"`
	VariantID      uuid.UUID        `json:"variant_id"`
	LocationID     uuid.UUID        `json:"location_id"`
	SystemQuantity *decimal.Decimal `json:"system_quantity"`
	ActualQuantity decimal.Decimal  `json:"actual_quantity"`
	UnitCost       *decimal.Decimal `json:"unit_cost"`
	LotNumber      string           `json:"lot_number" validate:"max=100"`
	Notes          string           `json:"notes" validate:"max=500"`
}

// AdjustmentItemResponse represents an adjustment item in responses
type AdjustmentItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	VariantID      uuid.UUID       `json:"variant_id"`
	LocationID     uuid.UUID       `json:"location_id"`
	SystemQuantity decimal.Decimal `json:"system_quantity"`
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Variance       decimal.Decimal `json:"variance"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	CostImpact     decimal.Decimal `json:"cost_impact"`
	LotNumber      string          `json:"lot_number,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// AdjustmentResponse represents an adjustment in responses
type AdjustmentResponse struct {
	ID               uuid.UUID                `json:"id"`
	TenantID         uuid.UUID                `json:"tenant_id"`
	AdjustmentNumber string                   `json:"adjustment_number"`
	WarehouseID      uuid.UUID                `json:"warehouse_id"`
	AdjustmentType   string                   `json:"adjustment_type"`
	Reason           string                   `json:"reason,omitempty"`
	Status           string                   `json:"status"`
	StockCountID     *uuid.UUID               `json:"stock_count_id,omitempty"`
	Items            []AdjustmentItemResponse `json:"items"`
	TotalCostImpact  decimal.Decimal          `json:"total_cost_impact"`
	SubmittedAt      *time.Time               `json:"submitted_at,omitempty"`
	ApprovedAt       *time.Time               `json:"approved_at,omitempty"`
	ApprovedBy       *uuid.UUID               `json:"approved_by,omitempty"`
	RejectedAt       *time.Time               `json:"rejected_at,omitempty"`
	RejectionReason  string                   `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	Version          int                      `json:"version"`
}

// ToAdjustmentResponse converts a domain InventoryAdjustment to a response
func ToAdjustmentResponse(a *inventory.InventoryAdjustment) AdjustmentResponse {
	items := make([]AdjustmentItemResponse, len(a.Items))
	for i := range a.Items {
		it := &a.Items[i]
		items[i] = AdjustmentItemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			LocationID:     it.LocationID,
			SystemQuantity: it.SystemQuantity,
			ActualQuantity: it.ActualQuantity,
			Variance:       it.Variance(),
			UnitCost:       it.UnitCost,
			CostImpact:     it.CostImpact(),
			LotNumber:      it.LotNumber,
			Notes:          it.Notes,
		}
	}
	return AdjustmentResponse{
		ID:               a.ID,
		TenantID:         a.TenantID,
		AdjustmentNumber: a.AdjustmentNumber,
		WarehouseID:      a.WarehouseID,
		AdjustmentType:   string(a.AdjustmentType),
		Reason:           a.Reason,
		Status:           string(a.Status),
		StockCountID:     a.StockCountID,
		Items:            items,
		TotalCostImpact:  a.TotalCostImpact(),
		SubmittedAt:      a.SubmittedAt,
		ApprovedAt:       a.ApprovedAt,
		ApprovedBy:       a.ApprovedBy,
		RejectedAt:       a.RejectedAt,
		RejectionReason:  a.RejectionReason,
		CreatedAt:        a.CreatedAt,
		Version:          a.Version,
	}
}

// AdjustmentListFilter represents filter options for adjustment lists
type AdjustmentListFilter struct {
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Statuses    []string   `json:"statuses" validate:"dive,oneof=DRAFT SUBMITTED APPROVED REJECTED"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
}
