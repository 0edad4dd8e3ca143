package inventory

import (
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeAdjustment is the aggregate type of inventory adjustments.
const AggregateTypeAdjustment = "InventoryAdjustment"

// AdjustmentType classifies why stock is adjusted.
type AdjustmentType string

const (
	AdjustmentTypeDamage        AdjustmentType = "DAMAGE"
	AdjustmentTypeLoss          AdjustmentType = "LOSS"
	AdjustmentTypeFound         AdjustmentType = "FOUND"
	AdjustmentTypeCorrection    AdjustmentType = "CORRECTION"
	AdjustmentTypeCountVariance AdjustmentType = "COUNT_VARIANCE"
	AdjustmentTypeWriteOff      AdjustmentType = "WRITE_OFF"
)

// IsValid reports whether t is a known adjustment type.
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentTypeDamage, AdjustmentTypeLoss, AdjustmentTypeFound, AdjustmentTypeCorrection,
		AdjustmentTypeCountVariance, AdjustmentTypeWriteOff:
		return true
	}
	return false
}

// AdjustmentStatus is the lifecycle state of an adjustment.
type AdjustmentStatus string

const (
	AdjustmentStatusDraft     AdjustmentStatus = "DRAFT"
	AdjustmentStatusSubmitted AdjustmentStatus = "SUBMITTED"
	AdjustmentStatusApproved  AdjustmentStatus = "APPROVED"
	AdjustmentStatusRejected  AdjustmentStatus = "REJECTED"
)

// InventoryAdjustment corrects ledger quantities to an observed actual.
type InventoryAdjustment struct {
	shared.TenantAggregateRoot
	AdjustmentNumber string
	WarehouseID      uuid.UUID
	AdjustmentType   AdjustmentType
	Reason           string
	Status           AdjustmentStatus
	StockCountID     *uuid.UUID
	Items            []InventoryAdjustmentItem
	SubmittedAt      *time.Time
	ApprovedAt       *time.Time
	ApprovedBy       *uuid.UUID
	RejectedAt       *time.Time
	RejectionReason  string
}

// InventoryAdjustmentItem is one corrected product at one location.
type InventoryAdjustmentItem struct {
	ID             uuid.UUID
	AdjustmentID   uuid.UUID
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	LocationID     uuid.UUID
	SystemQuantity decimal.Decimal
	ActualQuantity decimal.Decimal
	UnitCost       decimal.Decimal
	LotNumber      string
	Notes          string
}

// Variance is actual minus system.
func (i *InventoryAdjustmentItem) Variance() decimal.Decimal {
	return i.ActualQuantity.Sub(i.SystemQuantity)
}

// CostImpact is variance times unit cost.
func (i *InventoryAdjustmentItem) CostImpact() decimal.Decimal {
	return i.Variance().Mul(i.UnitCost)
}

// AdjustmentItemSpec describes a line to add to an adjustment.
type AdjustmentItemSpec struct {
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	LocationID     uuid.UUID
	SystemQuantity decimal.Decimal
	ActualQuantity decimal.Decimal
	UnitCost       decimal.Decimal
	LotNumber      string
	Notes          string
}

// NewInventoryAdjustment creates a Draft adjustment.
func NewInventoryAdjustment(tenantID uuid.UUID, number string, warehouseID uuid.UUID, adjustmentType AdjustmentType, reason string) (*InventoryAdjustment, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewValidationError("INVALID_NUMBER", "adjustment number is required")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "warehouse ID is required")
	}
	if !adjustmentType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ADJUSTMENT_TYPE", "unknown adjustment type "+string(adjustmentType))
	}
	return &InventoryAdjustment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AdjustmentNumber:    number,
		WarehouseID:         warehouseID,
		AdjustmentType:      adjustmentType,
		Reason:              reason,
		Status:              AdjustmentStatusDraft,
		Items:               make([]InventoryAdjustmentItem, 0),
	}, nil
}

// NewCountAdjustment builds the Approved COUNT_VARIANCE adjustment for an approved count.
// It carries one item per variance.
func NewCountAdjustment(count *StockCount, approvedBy uuid.UUID) (*InventoryAdjustment, error) {
	adj, err := NewInventoryAdjustment(count.TenantID, GenerateAdjustmentNumber(time.Now()), count.WarehouseID,
		AdjustmentTypeCountVariance, "stock count "+count.CountNumber)
	if err != nil {
		return nil, err
	}
	countID := count.ID
	adj.StockCountID = &countID
	for _, it := range count.VarianceItems() {
		adj.Items = append(adj.Items, InventoryAdjustmentItem{
			ID:             uuid.New(),
			AdjustmentID:   adj.ID,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			LocationID:     it.LocationID,
			SystemQuantity: it.SystemQuantity,
			ActualQuantity: *it.CountedQuantity,
			UnitCost:       it.UnitCost,
			Notes:          it.Notes,
		})
	}
	now := time.Now().UTC()
	adj.SubmittedAt = &now
	adj.ApprovedAt = &now
	if approvedBy != uuid.Nil {
		adj.ApprovedBy = &approvedBy
	}
	adj.Status = AdjustmentStatusApproved
	adj.AddDomainEvent(NewAdjustmentStatusChangedEvent(adj, AdjustmentStatusDraft))
	return adj, nil
}

// GenerateAdjustmentNumber returns ADJ-<yyyymmdd>-<8 hex>.
func GenerateAdjustmentNumber(now time.Time) string {
	return generateNumber("ADJ", now)
}

// ItemKey is the ledger key an adjustment item corrects.
func (a *InventoryAdjustment) ItemKey(item *InventoryAdjustmentItem) StockKey {
	return StockKey{TenantID: a.TenantID, ProductID: item.ProductID, VariantID: item.VariantID,
		WarehouseID: a.WarehouseID, LocationID: item.LocationID}
}

// AddItem appends a line to a Draft adjustment.
func (a *InventoryAdjustment) AddItem(spec AdjustmentItemSpec) (*InventoryAdjustmentItem, error) {
	if a.Status != AdjustmentStatusDraft {
		return nil, shared.NewInvalidTransitionError("adjustment", string(a.Status), "add items to")
	}
	if spec.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID is required")
	}
	if spec.ActualQuantity.IsNegative() || spec.SystemQuantity.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "quantities cannot be negative")
	}
	if spec.UnitCost.IsNegative() {
		return nil, shared.NewValidationError("INVALID_COST", "unit cost cannot be negative")
	}
	for _, it := range a.Items {
		if it.ProductID == spec.ProductID && it.VariantID == spec.VariantID && it.LocationID == spec.LocationID {
			return nil, shared.NewConflictError("DUPLICATE_ITEM", "product is already part of the adjustment")
		}
	}
	a.Items = append(a.Items, InventoryAdjustmentItem{
		ID:             uuid.New(),
		AdjustmentID:   a.ID,
		ProductID:      spec.ProductID,
		VariantID:      spec.VariantID,
		LocationID:     spec.LocationID,
		SystemQuantity: spec.SystemQuantity,
		ActualQuantity: spec.ActualQuantity,
		UnitCost:       spec.UnitCost,
		LotNumber:      spec.LotNumber,
		Notes:          spec.Notes,
	})
	a.IncrementVersion()
	return &a.Items[len(a.Items)-1], nil
}

// Submit sends a Draft adjustment for approval.
func (a *InventoryAdjustment) Submit() error {
	if a.Status != AdjustmentStatusDraft {
		return shared.NewInvalidTransitionError("adjustment", string(a.Status), "submit")
	}
	if len(a.Items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "adjustment has no items")
	}
	now := time.Now().UTC()
	a.SubmittedAt = &now
	a.Status = AdjustmentStatusSubmitted
	a.IncrementVersion()
	a.AddDomainEvent(NewAdjustmentStatusChangedEvent(a, AdjustmentStatusDraft))
	return nil
}

// Approve accepts a Submitted adjustment. The caller applies the variances to the ledger.
func (a *InventoryAdjustment) Approve(approvedBy uuid.UUID) error {
	if a.Status == AdjustmentStatusApproved {
		return shared.NewConflictError("ALREADY_APPROVED", "adjustment is already approved")
	}
	if a.Status != AdjustmentStatusSubmitted {
		return shared.NewInvalidTransitionError("adjustment", string(a.Status), "approve")
	}
	now := time.Now().UTC()
	a.ApprovedAt = &now
	if approvedBy != uuid.Nil {
		a.ApprovedBy = &approvedBy
	}
	a.Status = AdjustmentStatusApproved
	a.IncrementVersion()
	a.AddDomainEvent(NewAdjustmentStatusChangedEvent(a, AdjustmentStatusSubmitted))
	return nil
}

// Reject declines a Submitted adjustment.
func (a *InventoryAdjustment) Reject(reason string) error {
	if a.Status != AdjustmentStatusSubmitted {
		return shared.NewInvalidTransitionError("adjustment", string(a.Status), "reject")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("REASON_REQUIRED", "rejection reason is required")
	}
	now := time.Now().UTC()
	a.RejectedAt = &now
	a.RejectionReason = reason
	a.Status = AdjustmentStatusRejected
	a.IncrementVersion()
	a.AddDomainEvent(NewAdjustmentStatusChangedEvent(a, AdjustmentStatusSubmitted))
	return nil
}

// TotalCostImpact sums the cost impact of all items.
func (a *InventoryAdjustment) TotalCostImpact() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Items {
		total = total.Add(a.Items[i].CostImpact())
	}
	return total
}
