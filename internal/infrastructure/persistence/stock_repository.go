package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

func whereKey(db *gorm.DB, key inventory.StockKey) *gorm.DB {
	return db.Where("tenant_id = ? AND product_id = ? AND variant_id = ? AND warehouse_id = ? AND location_id = ?",
		key.TenantID, key.ProductID, key.VariantID, key.WarehouseID, key.LocationID)
}

// FindByKey finds the ledger row for a key
func (r *GormStockRepository) FindByKey(ctx context.Context, key inventory.StockKey) (*inventory.Stock, error) {
	var model models.StockModel
	if err := whereKey(r.db.WithContext(ctx), key).First(&model).Error; err != nil {
		return nil, translateError(err, "stock", key)
	}
	return model.ToDomain(), nil
}

// GetOrCreate inserts an empty row unless one exists, then reads the row with a row lock.
// Concurrent first writers both succeed: the loser's insert is a no-op.
func (r *GormStockRepository) GetOrCreate(ctx context.Context, key inventory.StockKey) (*inventory.Stock, error) {
	stock, err := inventory.NewStock(key)
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.StockModelFromDomain(stock)).Error; err != nil {
		return nil, translateError(err, "stock", key)
	}

	var model models.StockModel
	if err := whereKey(db.Clauses(clause.Locking{Strength: "UPDATE"}), key).
		First(&model).Error; err != nil {
		return nil, translateError(err, "stock", key)
	}
	return model.ToDomain(), nil
}

// SaveWithLock saves the row with optimistic locking. The update only applies when the
// stored version equals the version the row was loaded with.
func (r *GormStockRepository) SaveWithLock(ctx context.Context, stock *inventory.Stock) error {
	model := models.StockModelFromDomain(stock)
	result := r.db.WithContext(ctx).Model(&models.StockModel{}).
		Where("id = ? AND version = ?", stock.ID, stock.ExpectedVersion()).
		Updates(map[string]any{
			"quantity":          model.Quantity,
			"reserved_quantity": model.ReservedQuantity,
			"unit_cost":         model.UnitCost,
			"last_movement_at":  model.LastMovementAt,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})
	if err := checkVersioned(result, "stock", stock.Key()); err != nil {
		return err
	}
	stock.MarkPersisted()
	return nil
}

// FindByScope lists ledger rows matching scope
func (r *GormStockRepository) FindByScope(ctx context.Context, tenantID uuid.UUID, scope inventory.StockScope, filter shared.Filter) ([]inventory.Stock, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockModel{}).Where("tenant_id = ?", tenantID)
	if scope.ProductID != nil {
		query = query.Where("product_id = ?", *scope.ProductID)
	}
	if scope.VariantID != nil {
		query = query.Where("variant_id = ?", *scope.VariantID)
	}
	if scope.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *scope.WarehouseID)
	}
	if scope.LocationID != nil {
		query = query.Where("location_id = ?", *scope.LocationID)
	}
	if scope.NonZeroOnly {
		query = query.Where("quantity <> 0 OR reserved_quantity <> 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stockModels []models.StockModel
	if err := applyPaging(query, filter, stockSortable, "product_id").Find(&stockModels).Error; err != nil {
		return nil, 0, err
	}
	stocks := make([]inventory.Stock, len(stockModels))
	for i := range stockModels {
		stocks[i] = *stockModels[i].ToDomain()
	}
	return stocks, total, nil
}

type levelRow struct {
	OnHand    decimal.Decimal
	Available decimal.Decimal
}

// SumLevel aggregates a product across variants and locations, and across warehouses
// when warehouseID is nil
func (r *GormStockRepository) SumLevel(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (inventory.StockLevel, error) {
	query := r.db.WithContext(ctx).Model(&models.StockModel{}).
		Select("COALESCE(SUM(quantity), 0) AS on_hand, COALESCE(SUM(quantity - reserved_quantity), 0) AS available").
		Where("tenant_id = ? AND product_id = ?", tenantID, productID)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var row levelRow
	if err := query.Scan(&row).Error; err != nil {
		return inventory.StockLevel{}, err
	}
	return inventory.StockLevel{OnHand: row.OnHand, Available: row.Available}, nil
}

// GormMovementRepository implements MovementRepository using GORM.
// The journal is append-only: there is no update or delete.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a movement. A second reversal of the same movement violates the
// unique index on reversed_movement_id and returns a CONFLICT error.
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(models.StockMovementModelFromDomain(movement)).Error; err != nil {
		if isUniqueViolation(err) && movement.ReversedMovementID != nil {
			return shared.NewConflictError("ALREADY_REVERSED", "movement "+movement.ReversedMovementID.String()+" was already reversed")
		}
		return translateError(err, "movement", movement.ID)
	}
	return nil
}

// FindByID finds a movement by ID within a tenant
func (r *GormMovementRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockMovement, error) {
	var model models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "movement", id)
	}
	return model.ToDomain(), nil
}

// FindReversalOf returns the movement that reversed id, or nil
func (r *GormMovementRepository) FindReversalOf(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockMovement, error) {
	var movementModels []models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reversed_movement_id = ?", tenantID, id).
		Limit(1).
		Find(&movementModels).Error; err != nil {
		return nil, err
	}
	if len(movementModels) == 0 {
		return nil, nil
	}
	return movementModels[0].ToDomain(), nil
}

type sumRow struct {
	Total decimal.Decimal
}

// SumForKey adds up the signed quantities of every movement that applied to key
func (r *GormMovementRepository) SumForKey(ctx context.Context, key inventory.StockKey) (decimal.Decimal, error) {
	var row sumRow
	if err := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("tenant_id = ? AND product_id = ? AND variant_id = ? AND warehouse_id = ? AND ledger_location_id = ?",
			key.TenantID, key.ProductID, key.VariantID, key.WarehouseID, key.LocationID).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// FindHistory lists movements matching mf, newest first by default
func (r *GormMovementRepository) FindHistory(ctx context.Context, tenantID uuid.UUID, mf inventory.MovementFilter, filter shared.Filter) ([]inventory.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).Where("tenant_id = ?", tenantID)
	if mf.ProductID != uuid.Nil {
		query = query.Where("product_id = ?", mf.ProductID)
	}
	if mf.VariantID != nil {
		query = query.Where("variant_id = ?", *mf.VariantID)
	}
	if mf.WarehouseID != uuid.Nil {
		query = query.Where("warehouse_id = ?", mf.WarehouseID)
	}
	// uuid.Nil is the stored "no location", so filtering on it would match every
	// movement without a counter location
	if mf.LocationID != nil && *mf.LocationID != uuid.Nil {
		query = query.Where("(from_location_id = ? OR to_location_id = ?)", *mf.LocationID, *mf.LocationID)
	}
	if len(mf.MovementTypes) > 0 {
		query = query.Where("movement_type IN ?", statusStrings(mf.MovementTypes))
	}
	if mf.ReferenceType != "" {
		query = query.Where("reference_type = ?", mf.ReferenceType)
	}
	if mf.ReferenceNum != "" {
		query = query.Where("reference_number = ?", mf.ReferenceNum)
	}
	if mf.From != nil {
		query = query.Where("occurred_at >= ?", *mf.From)
	}
	if mf.To != nil {
		query = query.Where("occurred_at < ?", *mf.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movementModels []models.StockMovementModel
	if err := applyPaging(query, filter, movementSortable, "occurred_at").Find(&movementModels).Error; err != nil {
		return nil, 0, err
	}
	movements := make([]inventory.StockMovement, len(movementModels))
	for i := range movementModels {
		movements[i] = *movementModels[i].ToDomain()
	}
	return movements, total, nil
}

// Ensure the repositories implement the domain interfaces
var (
	_ inventory.StockRepository    = (*GormStockRepository)(nil)
	_ inventory.MovementRepository = (*GormMovementRepository)(nil)
)
