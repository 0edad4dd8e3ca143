package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockCountRepository implements StockCountRepository using GORM
type GormStockCountRepository struct {
	db *gorm.DB
}

// NewGormStockCountRepository creates a new GormStockCountRepository
func NewGormStockCountRepository(db *gorm.DB) *GormStockCountRepository {
	return &GormStockCountRepository{db: db}
}

// Create inserts a count together with its items
func (r *GormStockCountRepository) Create(ctx context.Context, c *inventory.StockCount) error {
	if err := r.db.WithContext(ctx).Create(models.StockCountModelFromDomain(c)).Error; err != nil {
		return translateError(err, "stock count", c.CountNumber)
	}
	c.MarkPersisted()
	return nil
}

// Save updates the count with optimistic locking and rewrites its items
func (r *GormStockCountRepository) Save(ctx context.Context, c *inventory.StockCount) error {
	model := models.StockCountModelFromDomain(c)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, c, "stock count"); err != nil {
			return err
		}
		return replaceChildren(tx, &models.StockCountItemModel{}, "stock_count_id", c.ID, &model.Items, len(model.Items))
	})
}

// FindByID finds a count by ID within a tenant
func (r *GormStockCountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockCount, error) {
	var model models.StockCountModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderByLine).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "stock count", id)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a count by its number
func (r *GormStockCountRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*inventory.StockCount, error) {
	var model models.StockCountModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderByLine).
		Where("tenant_id = ? AND count_number = ?", tenantID, number).
		First(&model).Error; err != nil {
		return nil, translateError(err, "stock count", number)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if a count number is taken
func (r *GormStockCountRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	return exists(r.db.WithContext(ctx), &models.StockCountModel{},
		"tenant_id = ? AND count_number = ?", tenantID, number)
}

// FindAll lists counts, optionally narrowed to a warehouse and statuses
func (r *GormStockCountRepository) FindAll(ctx context.Context, tenantID uuid.UUID, warehouseID *uuid.UUID, status []inventory.StockCountStatus, filter shared.Filter) ([]inventory.StockCount, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockCountModel{}).Where("tenant_id = ?", tenantID)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	if len(status) > 0 {
		query = query.Where("status IN ?", statusStrings(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var countModels []models.StockCountModel
	if err := applyPaging(query.Preload("Items", orderByLine), filter, documentSortable, "created_at").
		Find(&countModels).Error; err != nil {
		return nil, 0, err
	}
	counts := make([]inventory.StockCount, len(countModels))
	for i := range countModels {
		counts[i] = *countModels[i].ToDomain()
	}
	return counts, total, nil
}

// GormAdjustmentRepository implements AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// Create inserts an adjustment together with its items. At most one adjustment may
// reference a given stock count.
func (r *GormAdjustmentRepository) Create(ctx context.Context, a *inventory.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(models.InventoryAdjustmentModelFromDomain(a)).Error; err != nil {
		if isUniqueViolation(err) && a.StockCountID != nil {
			return shared.NewConflictError("ALREADY_ADJUSTED", "stock count "+a.StockCountID.String()+" already has an adjustment")
		}
		return translateError(err, "adjustment", a.AdjustmentNumber)
	}
	a.MarkPersisted()
	return nil
}

// Save updates the adjustment with optimistic locking and rewrites its items
func (r *GormAdjustmentRepository) Save(ctx context.Context, a *inventory.InventoryAdjustment) error {
	model := models.InventoryAdjustmentModelFromDomain(a)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, a, "adjustment"); err != nil {
			return err
		}
		return replaceChildren(tx, &models.InventoryAdjustmentItemModel{}, "adjustment_id", a.ID, &model.Items, len(model.Items))
	})
}

// FindByID finds an adjustment by ID within a tenant
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	return r.findOne(ctx, id, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByNumber finds an adjustment by its number
func (r *GormAdjustmentRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*inventory.InventoryAdjustment, error) {
	return r.findOne(ctx, number, "tenant_id = ? AND adjustment_number = ?", tenantID, number)
}

// FindByStockCount finds the adjustment generated from a stock count
func (r *GormAdjustmentRepository) FindByStockCount(ctx context.Context, tenantID, stockCountID uuid.UUID) (*inventory.InventoryAdjustment, error) {
	return r.findOne(ctx, stockCountID, "tenant_id = ? AND stock_count_id = ?", tenantID, stockCountID)
}

func (r *GormAdjustmentRepository) findOne(ctx context.Context, ref any, query string, args ...any) (*inventory.InventoryAdjustment, error) {
	var model models.InventoryAdjustmentModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderByLine).
		Where(query, args...).
		First(&model).Error; err != nil {
		return nil, translateError(err, "adjustment", ref)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if an adjustment number is taken
func (r *GormAdjustmentRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	return exists(r.db.WithContext(ctx), &models.InventoryAdjustmentModel{},
		"tenant_id = ? AND adjustment_number = ?", tenantID, number)
}

// FindAll lists adjustments, optionally narrowed to a warehouse and statuses
func (r *GormAdjustmentRepository) FindAll(ctx context.Context, tenantID uuid.UUID, warehouseID *uuid.UUID, status []inventory.AdjustmentStatus, filter shared.Filter) ([]inventory.InventoryAdjustment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryAdjustmentModel{}).Where("tenant_id = ?", tenantID)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	if len(status) > 0 {
		query = query.Where("status IN ?", statusStrings(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var adjModels []models.InventoryAdjustmentModel
	if err := applyPaging(query.Preload("Items", orderByLine), filter, documentSortable, "created_at").
		Find(&adjModels).Error; err != nil {
		return nil, 0, err
	}
	adjustments := make([]inventory.InventoryAdjustment, len(adjModels))
	for i := range adjModels {
		adjustments[i] = *adjModels[i].ToDomain()
	}
	return adjustments, total, nil
}

// Ensure the repositories implement the domain interfaces
var (
	_ inventory.StockCountRepository = (*GormStockCountRepository)(nil)
	_ inventory.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
)
