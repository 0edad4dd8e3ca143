package inventory

import (
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeStockCount is the aggregate type of physical counts.
const AggregateTypeStockCount = "StockCount"

// StockCountStatus is the lifecycle state of a count.
type StockCountStatus string

const (
	StockCountStatusDraft      StockCountStatus = "DRAFT"
	StockCountStatusInProgress StockCountStatus = "IN_PROGRESS"
	StockCountStatusCompleted  StockCountStatus = "COMPLETED"
	StockCountStatusApproved   StockCountStatus = "APPROVED"
	StockCountStatusCancelled  StockCountStatus = "CANCELLED"
)

// StockCount drives a physical count of a warehouse, optionally limited to one location.
type StockCount struct {
	shared.TenantAggregateRoot
	CountNumber     string
	WarehouseID     uuid.UUID
	LocationID      uuid.UUID
	Status          StockCountStatus
	IncludeAllStock bool
	Notes           string
	Items           []StockCountItem
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *uuid.UUID
	CancelledAt     *time.Time
	CancelReason    string
	AdjustmentID    *uuid.UUID
}

// StockCountItem is one counted product at one location.
type StockCountItem struct {
	ID              uuid.UUID
	StockCountID    uuid.UUID
	ProductID       uuid.UUID
	VariantID       uuid.UUID
	LocationID      uuid.UUID
	SystemQuantity  decimal.Decimal
	CountedQuantity *decimal.Decimal
	UnitCost        decimal.Decimal
	CountedAt       *time.Time
	CountedBy       *uuid.UUID
	Notes           string
}

// IsCounted reports whether a counted quantity was recorded.
func (i *StockCountItem) IsCounted() bool {
	return i.CountedQuantity != nil
}

// Variance is counted minus system, zero when not counted.
func (i *StockCountItem) Variance() decimal.Decimal {
	if i.CountedQuantity == nil {
		return decimal.Zero
	}
	return i.CountedQuantity.Sub(i.SystemQuantity)
}

// HasVariance reports whether the count differs from the snapshot.
func (i *StockCountItem) HasVariance() bool {
	return !i.Variance().IsZero()
}

// NewStockCount creates a Draft count.
func NewStockCount(tenantID uuid.UUID, number string, warehouseID, locationID uuid.UUID, includeAllStock bool, notes string) (*StockCount, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewValidationError("INVALID_NUMBER", "count number is required")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "warehouse ID is required")
	}
	return &StockCount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CountNumber:         number,
		WarehouseID:         warehouseID,
		LocationID:          locationID,
		Status:              StockCountStatusDraft,
		IncludeAllStock:     includeAllStock,
		Notes:               notes,
		Items:               make([]StockCountItem, 0),
	}, nil
}

// GenerateCountNumber returns CNT-<yyyymmdd>-<8 hex>.
func GenerateCountNumber(now time.Time) string {
	return generateNumber("CNT", now)
}

// ItemKey is the ledger key a count item reconciles.
func (c *StockCount) ItemKey(item *StockCountItem) StockKey {
	return StockKey{TenantID: c.TenantID, ProductID: item.ProductID, VariantID: item.VariantID,
		WarehouseID: c.WarehouseID, LocationID: item.LocationID}
}

// AddItem registers a product to count. Items can be added while Draft.
func (c *StockCount) AddItem(productID, variantID, locationID uuid.UUID) (*StockCountItem, error) {
	if c.Status != StockCountStatusDraft {
		return nil, shared.NewInvalidTransitionError("stock count", string(c.Status), "add items to")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID is required")
	}
	if c.LocationID != uuid.Nil && locationID != c.LocationID {
		return nil, shared.NewValidationError("LOCATION_OUT_OF_SCOPE", "item location is outside the count scope")
	}
	for _, it := range c.Items {
		if it.ProductID == productID && it.VariantID == variantID && it.LocationID == locationID {
			return nil, shared.NewConflictError("DUPLICATE_ITEM", "product is already part of the count")
		}
	}
	c.Items = append(c.Items, StockCountItem{
		ID:             uuid.New(),
		StockCountID:   c.ID,
		ProductID:      productID,
		VariantID:      variantID,
		LocationID:     locationID,
		SystemQuantity: decimal.Zero,
		UnitCost:       decimal.Zero,
	})
	return &c.Items[len(c.Items)-1], nil
}

// Snapshot is the ledger state captured for one item at Start.
type Snapshot struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Start snapshots system quantities and opens the count. lookup returns the ledger
// state for a key, reporting false when no row exists.
func (c *StockCount) Start(lookup func(StockKey) (Snapshot, bool)) error {
	if c.Status != StockCountStatusDraft {
		return shared.NewInvalidTransitionError("stock count", string(c.Status), "start")
	}
	for i := range c.Items {
		snap, ok := lookup(c.ItemKey(&c.Items[i]))
		if !ok {
			snap = Snapshot{Quantity: decimal.Zero, UnitCost: decimal.Zero}
		}
		c.Items[i].SystemQuantity = snap.Quantity
		c.Items[i].UnitCost = snap.UnitCost
	}
	now := time.Now().UTC()
	c.StartedAt = &now
	c.Status = StockCountStatusInProgress
	c.IncrementVersion()
	c.AddDomainEvent(NewStockCountStatusChangedEvent(c, StockCountStatusDraft))
	return nil
}

// RecordCount sets the counted quantity of an item. Re-counting overwrites.
func (c *StockCount) RecordCount(itemID uuid.UUID, counted decimal.Decimal, countedBy *uuid.UUID, notes string) error {
	if c.Status != StockCountStatusInProgress {
		return shared.NewInvalidTransitionError("stock count", string(c.Status), "record counts for")
	}
	if counted.IsNegative() {
		return shared.NewValidationError("INVALID_QUANTITY", "counted quantity cannot be negative")
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			now := time.Now().UTC()
			q := counted
			c.Items[i].CountedQuantity = &q
			c.Items[i].CountedAt = &now
			c.Items[i].CountedBy = countedBy
			if notes != "" {
				c.Items[i].Notes = notes
			}
			c.IncrementVersion()
			return nil
		}
	}
	return shared.NewNotFoundError("stock count item", itemID)
}

// Complete closes counting. Every item must have been counted.
func (c *StockCount) Complete() error {
	if c.Status != StockCountStatusInProgress {
		return shared.NewInvalidTransitionError("stock count", string(c.Status), "complete")
	}
	if len(c.Items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "stock count has no items")
	}
	for _, it := range c.Items {
		if !it.IsCounted() {
			return shared.NewValidationError("UNCOUNTED_ITEMS", "every item must be counted before completion")
		}
	}
	now := time.Now().UTC()
	c.CompletedAt = &now
	c.Status = StockCountStatusCompleted
	c.IncrementVersion()
	c.AddDomainEvent(NewStockCountStatusChangedEvent(c, StockCountStatusInProgress))
	return nil
}

// Approve accepts a Completed count and links the adjustment holding its variances.
func (c *StockCount) Approve(approvedBy uuid.UUID, adjustmentID *uuid.UUID) error {
	if c.Status == StockCountStatusApproved {
		return shared.NewConflictError("ALREADY_APPROVED", "stock count is already approved")
	}
	if c.Status != StockCountStatusCompleted {
		return shared.NewInvalidTransitionError("stock count", string(c.Status), "approve")
	}
	now := time.Now().UTC()
	c.ApprovedAt = &now
	if approvedBy != uuid.Nil {
		c.ApprovedBy = &approvedBy
	}
	c.AdjustmentID = adjustmentID
	c.Status = StockCountStatusApproved
	c.IncrementVersion()
	c.AddDomainEvent(NewStockCountStatusChangedEvent(c, StockCountStatusCompleted))
	return nil
}

// Cancel abandons a count that has not completed.
func (c *StockCount) Cancel(reason string) error {
	if c.Status != StockCountStatusDraft && c.Status != StockCountStatusInProgress {
		return shared.NewInvalidTransitionError("stock count", string(c.Status), "cancel")
	}
	from := c.Status
	now := time.Now().UTC()
	c.CancelledAt = &now
	c.CancelReason = reason
	c.Status = StockCountStatusCancelled
	c.IncrementVersion()
	c.AddDomainEvent(NewStockCountStatusChangedEvent(c, from))
	return nil
}

// VarianceItems returns the items whose count differs from the snapshot.
func (c *StockCount) VarianceItems() []StockCountItem {
	out := make([]StockCountItem, 0)
	for _, it := range c.Items {
		if it.HasVariance() {
			out = append(out, it)
		}
	}
	return out
}
