package persistence

import (
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// updateVersioned writes every column of model except identity and child rows, provided
// the stored row still carries the version agg was loaded with.
func updateVersioned(db *gorm.DB, model any, agg shared.AggregateRoot, entity string) error {
	result := db.Model(model).
		Where("id = ? AND version = ?", agg.GetID(), agg.ExpectedVersion()).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by", clause.Associations).
		Updates(model)
	if err := checkVersioned(result, entity, agg.GetID()); err != nil {
		return err
	}
	agg.MarkPersisted()
	return nil
}

// replaceChildren deletes the child rows of parentID and inserts rows in their place.
// rows must be a pointer to a slice of models; an empty slice only deletes.
func replaceChildren(db *gorm.DB, child any, foreignKey string, parentID uuid.UUID, rows any, count int) error {
	if err := db.Where(foreignKey+" = ?", parentID).Delete(child).Error; err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return db.Create(rows).Error
}

// exists reports whether a row of model matches the condition.
func exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// orderByLine keeps preloaded child rows in document order.
func orderByLine(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}
