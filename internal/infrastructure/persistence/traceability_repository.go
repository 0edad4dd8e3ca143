package persistence

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLotBatchRepository implements LotBatchRepository using GORM
type GormLotBatchRepository struct {
	db *gorm.DB
}

// NewGormLotBatchRepository creates a new GormLotBatchRepository
func NewGormLotBatchRepository(db *gorm.DB) *GormLotBatchRepository {
	return &GormLotBatchRepository{db: db}
}

// Create inserts a lot
func (r *GormLotBatchRepository) Create(ctx context.Context, l *inventory.LotBatch) error {
	if err := r.db.WithContext(ctx).Create(models.LotBatchModelFromDomain(l)).Error; err != nil {
		return translateError(err, "lot", l.LotNumber)
	}
	l.MarkPersisted()
	return nil
}

// Save updates a lot with optimistic locking
func (r *GormLotBatchRepository) Save(ctx context.Context, l *inventory.LotBatch) error {
	return updateVersioned(r.db.WithContext(ctx), models.LotBatchModelFromDomain(l), l, "lot")
}

// FindByID finds a lot by ID within a tenant
func (r *GormLotBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.LotBatch, error) {
	var model models.LotBatchModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "lot", id)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a product's lot by its number
func (r *GormLotBatchRepository) FindByNumber(ctx context.Context, tenantID, productID uuid.UUID, lotNumber string) (*inventory.LotBatch, error) {
	var model models.LotBatchModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND lot_number = ?", tenantID, productID, lotNumber).
		First(&model).Error; err != nil {
		return nil, translateError(err, "lot", lotNumber)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if a lot number is taken for a product
func (r *GormLotBatchRepository) ExistsByNumber(ctx context.Context, tenantID, productID uuid.UUID, lotNumber string) (bool, error) {
	return exists(r.db.WithContext(ctx), &models.LotBatchModel{},
		"tenant_id = ? AND product_id = ? AND lot_number = ?", tenantID, productID, lotNumber)
}

// FindExpiring lists non-consumed lots expiring in [from, until), soonest first
func (r *GormLotBatchRepository) FindExpiring(ctx context.Context, tenantID uuid.UUID, from, until time.Time) ([]inventory.LotBatch, error) {
	return findLotsByExpiry(r.db.WithContext(ctx).
		Where("tenant_id = ? AND status <> ? AND expiry_date >= ? AND expiry_date < ?",
			tenantID, inventory.LotStatusConsumed, from, until))
}

// FindExpired lists non-consumed lots whose expiry is at or before now
func (r *GormLotBatchRepository) FindExpired(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]inventory.LotBatch, error) {
	return findLotsByExpiry(r.db.WithContext(ctx).
		Where("tenant_id = ? AND status <> ? AND expiry_date <= ?",
			tenantID, inventory.LotStatusConsumed, now))
}

func findLotsByExpiry(query *gorm.DB) ([]inventory.LotBatch, error) {
	var lotModels []models.LotBatchModel
	if err := query.Order("expiry_date ASC, lot_number ASC").Find(&lotModels).Error; err != nil {
		return nil, err
	}
	lots := make([]inventory.LotBatch, len(lotModels))
	for i := range lotModels {
		lots[i] = *lotModels[i].ToDomain()
	}
	return lots, nil
}

// GormSerialNumberRepository implements SerialNumberRepository using GORM
type GormSerialNumberRepository struct {
	db *gorm.DB
}

// NewGormSerialNumberRepository creates a new GormSerialNumberRepository
func NewGormSerialNumberRepository(db *gorm.DB) *GormSerialNumberRepository {
	return &GormSerialNumberRepository{db: db}
}

// Create inserts a serial number
func (r *GormSerialNumberRepository) Create(ctx context.Context, s *inventory.SerialNumber) error {
	if err := r.db.WithContext(ctx).Create(models.SerialNumberModelFromDomain(s)).Error; err != nil {
		return translateError(err, "serial", s.Serial)
	}
	s.MarkPersisted()
	return nil
}

// Save updates a serial number with optimistic locking
func (r *GormSerialNumberRepository) Save(ctx context.Context, s *inventory.SerialNumber) error {
	return updateVersioned(r.db.WithContext(ctx), models.SerialNumberModelFromDomain(s), s, "serial")
}

// FindByID finds a serial number by ID within a tenant
func (r *GormSerialNumberRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.SerialNumber, error) {
	var model models.SerialNumberModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "serial", id)
	}
	return model.ToDomain(), nil
}

// FindBySerial finds a product's unit by its serial
func (r *GormSerialNumberRepository) FindBySerial(ctx context.Context, tenantID, productID uuid.UUID, serial string) (*inventory.SerialNumber, error) {
	var model models.SerialNumberModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND serial = ?", tenantID, productID, serial).
		First(&model).Error; err != nil {
		return nil, translateError(err, "serial", serial)
	}
	return model.ToDomain(), nil
}

// ExistsBySerial checks if a serial is registered for a product
func (r *GormSerialNumberRepository) ExistsBySerial(ctx context.Context, tenantID, productID uuid.UUID, serial string) (bool, error) {
	return exists(r.db.WithContext(ctx), &models.SerialNumberModel{},
		"tenant_id = ? AND product_id = ? AND serial = ?", tenantID, productID, serial)
}

// FindByProduct lists a product's units, optionally narrowed to statuses
func (r *GormSerialNumberRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, status []inventory.SerialStatus, filter shared.Filter) ([]inventory.SerialNumber, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SerialNumberModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID)
	if len(status) > 0 {
		query = query.Where("status IN ?", statusStrings(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var serialModels []models.SerialNumberModel
	if err := applyPaging(query, filter, serialSortable, "received_at").Find(&serialModels).Error; err != nil {
		return nil, 0, err
	}
	serials := make([]inventory.SerialNumber, len(serialModels))
	for i := range serialModels {
		serials[i] = *serialModels[i].ToDomain()
	}
	return serials, total, nil
}

// Ensure the repositories implement the domain interfaces
var (
	_ inventory.LotBatchRepository     = (*GormLotBatchRepository)(nil)
	_ inventory.SerialNumberRepository = (*GormSerialNumberRepository)(nil)
)
