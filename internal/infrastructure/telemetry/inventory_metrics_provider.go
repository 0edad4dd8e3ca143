package telemetry

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInventoryMetricsProvider implements InventoryMetricsProvider with aggregate
// queries over the ledger and suggestion tables.
type GormInventoryMetricsProvider struct {
	db *gorm.DB
}

// NewGormInventoryMetricsProvider creates a new GormInventoryMetricsProvider.
func NewGormInventoryMetricsProvider(db *gorm.DB) *GormInventoryMetricsProvider {
	return &GormInventoryMetricsProvider{db: db}
}

// ReservedByWarehouse sums reserved quantity per tenant and warehouse, skipping zeros.
func (p *GormInventoryMetricsProvider) ReservedByWarehouse(ctx context.Context) ([]WarehouseQuantity, error) {
	type row struct {
		TenantID    uuid.UUID       `gorm:"column:tenant_id"`
		WarehouseID uuid.UUID       `gorm:"column:warehouse_id"`
		Reserved    decimal.Decimal `gorm:"column:reserved"`
	}

	var rows []row
	err := p.db.WithContext(ctx).
		Table("stocks").
		Select("tenant_id, warehouse_id, COALESCE(SUM(reserved_quantity), 0) AS reserved").
		Group("tenant_id, warehouse_id").
		Having("SUM(reserved_quantity) > 0").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]WarehouseQuantity, len(rows))
	for i, r := range rows {
		out[i] = WarehouseQuantity{TenantID: r.TenantID, WarehouseID: r.WarehouseID, Quantity: r.Reserved}
	}
	return out, nil
}

// PendingSuggestions counts open reorder suggestions per tenant.
func (p *GormInventoryMetricsProvider) PendingSuggestions(ctx context.Context) ([]TenantCount, error) {
	var out []TenantCount
	err := p.db.WithContext(ctx).
		Table("reorder_suggestions").
		Select("tenant_id, COUNT(*) AS count").
		Where("status = ?", string(inventory.SuggestionStatusPending)).
		Group("tenant_id").
		Scan(&out).Error
	return out, err
}

var _ InventoryMetricsProvider = (*GormInventoryMetricsProvider)(nil)
