package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Journal appends movements and keeps them paired with ledger changes.
type Journal struct {
	repos  TransactionalRepositories
	ledger *Ledger
}

// NewJournal binds a journal to the repositories of a transaction.
func NewJournal(repos TransactionalRepositories, ledger *Ledger) *Journal {
	return &Journal{repos: repos, ledger: ledger}
}

// Record appends a movement and returns its ID. It does not touch the ledger.
func (j *Journal) Record(ctx context.Context, m *inventory.StockMovement) (uuid.UUID, error) {
	if err := j.repos.MovementRepo().Create(ctx, m); err != nil {
		return uuid.Nil, err
	}
	j.repos.RecordEvents(inventory.NewStockMovementRecordedEvent(m))
	return m.ID, nil
}

// Post applies a signed quantity change to the ledger and journals it as one unit.
func (j *Journal) Post(ctx context.Context, key inventory.StockKey, quantity decimal.Decimal, movementType inventory.MovementType, d inventory.MovementDetails) (*inventory.StockMovement, error) {
	m, err := inventory.NewStockMovement(key, quantity, movementType, d)
	if err != nil {
		return nil, err
	}
	if _, err := j.ledger.ApplyDelta(ctx, LedgerDelta{Key: key, Quantity: quantity, UnitCost: d.UnitCost}); err != nil {
		return nil, err
	}
	if _, err := j.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Reverse compensates a movement: the inverse delta is applied to the ledger and a
// REVERSAL movement linked to the original is appended.
func (j *Journal) Reverse(ctx context.Context, tenantID, movementID uuid.UUID, reason string, by *uuid.UUID) (*inventory.StockMovement, error) {
	original, err := j.repos.MovementRepo().FindByID(ctx, tenantID, movementID)
	if err != nil {
		return nil, err
	}
	existing, err := j.repos.MovementRepo().FindReversalOf(ctx, tenantID, movementID)
	if err != nil {
		return nil, fmt.Errorf("look up reversal of %s: %w", movementID, err)
	}
	if existing != nil {
		return nil, shared.NewConflictError("ALREADY_REVERSED",
			fmt.Sprintf("movement %s was already reversed by %s", movementID, existing.ID))
	}
	reversal, err := original.Reverse(reason, by)
	if err != nil {
		return nil, err
	}
	if _, err := j.ledger.ApplyDelta(ctx, LedgerDelta{Key: reversal.Key(), Quantity: reversal.Quantity}); err != nil {
		return nil, err
	}
	if _, err := j.Record(ctx, reversal); err != nil {
		return nil, err
	}
	return reversal, nil
}
