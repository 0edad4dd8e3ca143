package persistence

import (
	"errors"
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// translateError maps driver and GORM errors onto domain errors.
// entity and id only shape the message.
func translateError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(entity, id)
	}
	if isUniqueViolation(err) {
		return shared.NewConflictError("ALREADY_EXISTS", fmt.Sprintf("%s %v already exists", entity, id))
	}
	return fmt.Errorf("%s %v: %w", entity, id, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// checkVersioned turns an optimistic update that touched no rows into ErrOptimisticLock.
func checkVersioned(result *gorm.DB, entity string, id any) error {
	if result.Error != nil {
		return translateError(result.Error, entity, id)
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}
	return nil
}
