package inventory

import (
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeStock is the aggregate type of ledger rows.
const AggregateTypeStock = "Stock"

// StockKey identifies one ledger row. uuid.Nil in VariantID or LocationID means "none".
type StockKey struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	ProductID   uuid.UUID `json:"product_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	LocationID  uuid.UUID `json:"location_id"`
}

// String renders the canonical key used for lock ordering.
func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.TenantID, k.ProductID, k.VariantID, k.WarehouseID, k.LocationID)
}

// Validate checks the mandatory parts of the key.
func (k StockKey) Validate() error {
	switch {
	case k.TenantID == uuid.Nil:
		return shared.NewValidationError("INVALID_TENANT", "tenant ID is required")
	case k.ProductID == uuid.Nil:
		return shared.NewValidationError("INVALID_PRODUCT", "product ID is required")
	case k.WarehouseID == uuid.Nil:
		return shared.NewValidationError("INVALID_WAREHOUSE", "warehouse ID is required")
	}
	return nil
}

// AtLocation returns a copy of the key bound to another location.
func (k StockKey) AtLocation(locationID uuid.UUID) StockKey {
	k.LocationID = locationID
	return k
}

// AtWarehouse returns a copy of the key bound to another warehouse and location.
func (k StockKey) AtWarehouse(warehouseID, locationID uuid.UUID) StockKey {
	k.WarehouseID = warehouseID
	k.LocationID = locationID
	return k
}

// Stock is the authoritative on-hand and reserved quantity for one key.
// Quantity >= 0, ReservedQuantity >= 0 and ReservedQuantity <= Quantity hold after every mutation.
type Stock struct {
	shared.TenantAggregateRoot
	ProductID        uuid.UUID
	VariantID        uuid.UUID
	WarehouseID      uuid.UUID
	LocationID       uuid.UUID
	Quantity         decimal.Decimal
	ReservedQuantity decimal.Decimal
	UnitCost         decimal.Decimal // moving weighted average
	LastMovementAt   *time.Time
}

// NewStock creates an empty ledger row for key.
func NewStock(key StockKey) (*Stock, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return &Stock{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(key.TenantID),
		ProductID:           key.ProductID,
		VariantID:           key.VariantID,
		WarehouseID:         key.WarehouseID,
		LocationID:          key.LocationID,
		Quantity:            decimal.Zero,
		ReservedQuantity:    decimal.Zero,
		UnitCost:            decimal.Zero,
	}, nil
}

// Key returns the ledger key of the row.
func (s *Stock) Key() StockKey {
	return StockKey{
		TenantID:    s.TenantID,
		ProductID:   s.ProductID,
		VariantID:   s.VariantID,
		WarehouseID: s.WarehouseID,
		LocationID:  s.LocationID,
	}
}

// Available is on-hand minus reserved.
func (s *Stock) Available() decimal.Decimal {
	return s.Quantity.Sub(s.ReservedQuantity)
}

// ApplyDelta is the single mutation primitive of the ledger.
// A positive quantity delta with a positive unitCost updates the moving average cost.
func (s *Stock) ApplyDelta(quantityDelta, reservedDelta, unitCost decimal.Decimal) error {
	if quantityDelta.IsZero() && reservedDelta.IsZero() {
		return nil
	}

	newQuantity := s.Quantity.Add(quantityDelta)
	newReserved := s.ReservedQuantity.Add(reservedDelta)

	if newQuantity.IsNegative() {
		return shared.NewDomainError(shared.KindInvalidQuantity, "NEGATIVE_QUANTITY",
			fmt.Sprintf("on-hand quantity would become %s", newQuantity))
	}
	if newReserved.IsNegative() {
		return shared.NewDomainError(shared.KindInvalidQuantity, "NEGATIVE_RESERVED",
			fmt.Sprintf("reserved quantity would become %s", newReserved))
	}
	if newReserved.GreaterThan(newQuantity) {
		return shared.NewDomainError(shared.KindInvalidQuantity, "RESERVED_EXCEEDS_ON_HAND",
			fmt.Sprintf("reserved %s would exceed on-hand %s", newReserved, newQuantity))
	}

	if quantityDelta.IsPositive() && unitCost.IsPositive() {
		if s.Quantity.IsZero() {
			s.UnitCost = unitCost
		} else {
			total := s.Quantity.Mul(s.UnitCost).Add(quantityDelta.Mul(unitCost))
			s.UnitCost = total.Div(newQuantity).Round(4)
		}
	}

	s.Quantity = newQuantity
	s.ReservedQuantity = newReserved
	if !quantityDelta.IsZero() {
		now := time.Now().UTC()
		s.LastMovementAt = &now
	}
	s.IncrementVersion()

	s.AddDomainEvent(NewStockChangedEvent(s, quantityDelta, reservedDelta))
	return nil
}
