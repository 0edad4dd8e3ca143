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

// GormReorderRuleRepository implements ReorderRuleRepository using GORM
type GormReorderRuleRepository struct {
	db *gorm.DB
}

// NewGormReorderRuleRepository creates a new GormReorderRuleRepository
func NewGormReorderRuleRepository(db *gorm.DB) *GormReorderRuleRepository {
	return &GormReorderRuleRepository{db: db}
}

// Create inserts a rule
func (r *GormReorderRuleRepository) Create(ctx context.Context, rule *inventory.ReorderRule) error {
	if err := r.db.WithContext(ctx).Create(models.ReorderRuleModelFromDomain(rule)).Error; err != nil {
		return translateError(err, "reorder rule", rule.ID)
	}
	rule.MarkPersisted()
	return nil
}

// Save updates a rule with optimistic locking
func (r *GormReorderRuleRepository) Save(ctx context.Context, rule *inventory.ReorderRule) error {
	return updateVersioned(r.db.WithContext(ctx), models.ReorderRuleModelFromDomain(rule), rule, "reorder rule")
}

// FindByID finds a rule by ID within a tenant
func (r *GormReorderRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.ReorderRule, error) {
	var model models.ReorderRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "reorder rule", id)
	}
	return model.ToDomain(), nil
}

// FindAll lists rules, optionally narrowed to statuses
func (r *GormReorderRuleRepository) FindAll(ctx context.Context, tenantID uuid.UUID, status []inventory.ReorderRuleStatus, filter shared.Filter) ([]inventory.ReorderRule, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReorderRuleModel{}).Where("tenant_id = ?", tenantID)
	if len(status) > 0 {
		query = query.Where("status IN ?", statusStrings(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ruleModels []models.ReorderRuleModel
	if err := applyPaging(query, filter, reorderSortable, "priority").Find(&ruleModels).Error; err != nil {
		return nil, 0, err
	}
	return rulesToDomain(ruleModels), total, nil
}

// FindActiveForProduct lists Active product rules that cover warehouseID, highest priority first
func (r *GormReorderRuleRepository) FindActiveForProduct(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) ([]inventory.ReorderRule, error) {
	var ruleModels []models.ReorderRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND status = ?", tenantID, productID, inventory.ReorderRuleStatusActive).
		Where("warehouse_id IS NULL OR warehouse_id = ?", warehouseID).
		Order("priority DESC, created_at ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	return rulesToDomain(ruleModels), nil
}

// FindScheduledDue lists Active scheduled rules of every tenant whose next run is due
func (r *GormReorderRuleRepository) FindScheduledDue(ctx context.Context, now time.Time, limit int) ([]inventory.ReorderRule, error) {
	var ruleModels []models.ReorderRuleModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND is_scheduled = ?", inventory.ReorderRuleStatusActive, true).
		Where("next_scheduled_run IS NULL OR next_scheduled_run <= ?", now).
		Order("priority DESC, next_scheduled_run ASC").
		Limit(limit).
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	return rulesToDomain(ruleModels), nil
}

func rulesToDomain(ruleModels []models.ReorderRuleModel) []inventory.ReorderRule {
	rules := make([]inventory.ReorderRule, len(ruleModels))
	for i := range ruleModels {
		rules[i] = *ruleModels[i].ToDomain()
	}
	return rules
}

// GormReorderSuggestionRepository implements ReorderSuggestionRepository using GORM
type GormReorderSuggestionRepository struct {
	db *gorm.DB
}

// NewGormReorderSuggestionRepository creates a new GormReorderSuggestionRepository
func NewGormReorderSuggestionRepository(db *gorm.DB) *GormReorderSuggestionRepository {
	return &GormReorderSuggestionRepository{db: db}
}

// Create inserts a suggestion inside a savepoint, so that losing the race for the
// Pending slot of a scope leaves the surrounding transaction usable.
func (r *GormReorderSuggestionRepository) Create(ctx context.Context, s *inventory.ReorderSuggestion) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(models.ReorderSuggestionModelFromDomain(s)).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewConflictError("SUGGESTION_PENDING",
				"a pending suggestion already exists for product "+s.ProductID.String())
		}
		return translateError(err, "reorder suggestion", s.ID)
	}
	s.MarkPersisted()
	return nil
}

// Save updates a suggestion with optimistic locking
func (r *GormReorderSuggestionRepository) Save(ctx context.Context, s *inventory.ReorderSuggestion) error {
	return updateVersioned(r.db.WithContext(ctx), models.ReorderSuggestionModelFromDomain(s), s, "reorder suggestion")
}

// FindByID finds a suggestion by ID within a tenant
func (r *GormReorderSuggestionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.ReorderSuggestion, error) {
	var model models.ReorderSuggestionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "reorder suggestion", id)
	}
	return model.ToDomain(), nil
}

// FindPendingForScope returns the Pending suggestion for a product and warehouse scope, or nil
func (r *GormReorderSuggestionRepository) FindPendingForScope(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (*inventory.ReorderSuggestion, error) {
	scope := uuid.Nil
	if warehouseID != nil {
		scope = *warehouseID
	}
	var suggestionModels []models.ReorderSuggestionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND warehouse_scope = ? AND status = ?",
			tenantID, productID, scope, inventory.SuggestionStatusPending).
		Limit(1).
		Find(&suggestionModels).Error; err != nil {
		return nil, err
	}
	if len(suggestionModels) == 0 {
		return nil, nil
	}
	return suggestionModels[0].ToDomain(), nil
}

// FindAll lists suggestions matching sf
func (r *GormReorderSuggestionRepository) FindAll(ctx context.Context, tenantID uuid.UUID, sf inventory.SuggestionFilter, filter shared.Filter) ([]inventory.ReorderSuggestion, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReorderSuggestionModel{}).Where("tenant_id = ?", tenantID)
	if sf.ProductID != nil {
		query = query.Where("product_id = ?", *sf.ProductID)
	}
	if sf.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *sf.WarehouseID)
	}
	if len(sf.Status) > 0 {
		query = query.Where("status IN ?", statusStrings(sf.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var suggestionModels []models.ReorderSuggestionModel
	if err := applyPaging(query, filter, reorderSortable, "created_at").Find(&suggestionModels).Error; err != nil {
		return nil, 0, err
	}
	return suggestionsToDomain(suggestionModels), total, nil
}

// FindDue lists Pending suggestions of every tenant that expired at or before now
func (r *GormReorderSuggestionRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]inventory.ReorderSuggestion, error) {
	var suggestionModels []models.ReorderSuggestionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", inventory.SuggestionStatusPending, now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&suggestionModels).Error; err != nil {
		return nil, err
	}
	return suggestionsToDomain(suggestionModels), nil
}

func suggestionsToDomain(suggestionModels []models.ReorderSuggestionModel) []inventory.ReorderSuggestion {
	suggestions := make([]inventory.ReorderSuggestion, len(suggestionModels))
	for i := range suggestionModels {
		suggestions[i] = *suggestionModels[i].ToDomain()
	}
	return suggestions
}

// Ensure the repositories implement the domain interfaces
var (
	_ inventory.ReorderRuleRepository       = (*GormReorderRuleRepository)(nil)
	_ inventory.ReorderSuggestionRepository = (*GormReorderSuggestionRepository)(nil)
)
