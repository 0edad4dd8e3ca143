package inventory

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back together with
	// every event recorded through RecordEvents.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all inventory repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Aggregate boundary notes:
//   - StockRepo holds ledger rows. Only Ledger mutates them.
//   - MovementRepo is append-only.
//   - Transfer, count and adjustment items are child entities saved with their aggregate root.
type TransactionalRepositories interface {
	StockRepo() inventory.StockRepository
	MovementRepo() inventory.MovementRepository
	ReservationRepo() inventory.ReservationRepository
	TransferRepo() inventory.TransferRepository
	StockCountRepo() inventory.StockCountRepository
	AdjustmentRepo() inventory.AdjustmentRepository
	LotRepo() inventory.LotBatchRepository
	SerialRepo() inventory.SerialNumberRepository
	ReorderRuleRepo() inventory.ReorderRuleRepository
	SuggestionRepo() inventory.ReorderSuggestionRepository
	// RecordEvents queues domain events. They are written to the outbox inside the
	// transaction, or published after commit when no outbox is configured.
	RecordEvents(events ...shared.DomainEvent)
}

// recordEvents moves the pending events of each aggregate onto the transaction.
func recordEvents(repos TransactionalRepositories, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		if events := agg.GetDomainEvents(); len(events) > 0 {
			repos.RecordEvents(events...)
			agg.ClearDomainEvents()
		}
	}
}
