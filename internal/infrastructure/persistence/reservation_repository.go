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

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// Create inserts a new reservation
func (r *GormReservationRepository) Create(ctx context.Context, res *inventory.StockReservation) error {
	if err := r.db.WithContext(ctx).Create(models.StockReservationModelFromDomain(res)).Error; err != nil {
		return translateError(err, "reservation", res.ReservationNumber)
	}
	res.MarkPersisted()
	return nil
}

// Save updates a reservation with optimistic locking
func (r *GormReservationRepository) Save(ctx context.Context, res *inventory.StockReservation) error {
	return updateVersioned(r.db.WithContext(ctx), models.StockReservationModelFromDomain(res), res, "reservation")
}

// FindByID finds a reservation by ID within a tenant
func (r *GormReservationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockReservation, error) {
	var model models.StockReservationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "reservation", id)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a reservation by its number
func (r *GormReservationRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*inventory.StockReservation, error) {
	var model models.StockReservationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reservation_number = ?", tenantID, number).
		First(&model).Error; err != nil {
		return nil, translateError(err, "reservation", number)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if a reservation number is taken
func (r *GormReservationRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	return exists(r.db.WithContext(ctx), &models.StockReservationModel{},
		"tenant_id = ? AND reservation_number = ?", tenantID, number)
}

// FindAll lists reservations matching rf
func (r *GormReservationRepository) FindAll(ctx context.Context, tenantID uuid.UUID, rf inventory.ReservationFilter, filter shared.Filter) ([]inventory.StockReservation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockReservationModel{}).Where("tenant_id = ?", tenantID)
	if rf.ProductID != nil {
		query = query.Where("product_id = ?", *rf.ProductID)
	}
	if rf.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *rf.WarehouseID)
	}
	if len(rf.Status) > 0 {
		query = query.Where("status IN ?", statusStrings(rf.Status))
	}
	if rf.ReferenceNumber != "" {
		query = query.Where("reference_number = ?", rf.ReferenceNumber)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var resModels []models.StockReservationModel
	if err := applyPaging(query, filter, documentSortable, "created_at").Find(&resModels).Error; err != nil {
		return nil, 0, err
	}
	reservations := make([]inventory.StockReservation, len(resModels))
	for i := range resModels {
		reservations[i] = *resModels[i].ToDomain()
	}
	return reservations, total, nil
}

// FindDue lists Active reservations of every tenant that expired at or before now, oldest first
func (r *GormReservationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]inventory.StockReservation, error) {
	var resModels []models.StockReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", inventory.ReservationStatusActive, now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&resModels).Error; err != nil {
		return nil, err
	}
	reservations := make([]inventory.StockReservation, len(resModels))
	for i := range resModels {
		reservations[i] = *resModels[i].ToDomain()
	}
	return reservations, nil
}

// statusStrings converts typed statuses for IN clauses.
func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Ensure GormReservationRepository implements ReservationRepository
var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
