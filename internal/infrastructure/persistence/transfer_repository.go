package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransferRepository implements TransferRepository using GORM.
// Items are stored in stock_transfer_items and always loaded with their transfer.
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// Create inserts a transfer together with its items
func (r *GormTransferRepository) Create(ctx context.Context, t *inventory.StockTransfer) error {
	if err := r.db.WithContext(ctx).Create(models.StockTransferModelFromDomain(t)).Error; err != nil {
		return translateError(err, "transfer", t.TransferNumber)
	}
	t.MarkPersisted()
	return nil
}

// Save updates the transfer with optimistic locking and rewrites its items
func (r *GormTransferRepository) Save(ctx context.Context, t *inventory.StockTransfer) error {
	model := models.StockTransferModelFromDomain(t)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, t, "transfer"); err != nil {
			return err
		}
		return replaceChildren(tx, &models.StockTransferItemModel{}, "transfer_id", t.ID, &model.Items, len(model.Items))
	})
}

// FindByID finds a transfer by ID within a tenant
func (r *GormTransferRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockTransfer, error) {
	var model models.StockTransferModel
	if err := r.withItems(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "transfer", id)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a transfer by its number
func (r *GormTransferRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*inventory.StockTransfer, error) {
	var model models.StockTransferModel
	if err := r.withItems(ctx).
		Where("tenant_id = ? AND transfer_number = ?", tenantID, number).
		First(&model).Error; err != nil {
		return nil, translateError(err, "transfer", number)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if a transfer number is taken
func (r *GormTransferRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	return exists(r.db.WithContext(ctx), &models.StockTransferModel{},
		"tenant_id = ? AND transfer_number = ?", tenantID, number)
}

// FindAll lists transfers touching a warehouse on either side
func (r *GormTransferRepository) FindAll(ctx context.Context, tenantID uuid.UUID, tf inventory.TransferFilter, filter shared.Filter) ([]inventory.StockTransfer, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTransferModel{}).Where("tenant_id = ?", tenantID)
	if tf.WarehouseID != nil {
		query = query.Where("source_warehouse_id = ? OR destination_warehouse_id = ?", *tf.WarehouseID, *tf.WarehouseID)
	}
	if len(tf.Status) > 0 {
		query = query.Where("status IN ?", statusStrings(tf.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var transferModels []models.StockTransferModel
	if err := applyPaging(query.Preload("Items", orderByLine), filter, documentSortable, "created_at").
		Find(&transferModels).Error; err != nil {
		return nil, 0, err
	}
	transfers := make([]inventory.StockTransfer, len(transferModels))
	for i := range transferModels {
		transfers[i] = *transferModels[i].ToDomain()
	}
	return transfers, total, nil
}

func (r *GormTransferRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", orderByLine)
}

// Ensure GormTransferRepository implements TransferRepository
var _ inventory.TransferRepository = (*GormTransferRepository)(nil)
