package persistence

import (
	"context"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
//
// Recorded events go to the outbox inside the transaction when an outbox saver is set.
// Without one they are handed to the publisher after a successful commit, which is
// only suitable for tests and single-process setups.
type GormTransactionScope struct {
	db        *gorm.DB
	outbox    shared.OutboxEventSaver
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// TransactionScopeOption configures a GormTransactionScope
type TransactionScopeOption func(*GormTransactionScope)

// WithOutbox writes recorded events to the outbox in the same transaction.
func WithOutbox(saver shared.OutboxEventSaver) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.outbox = saver
	}
}

// WithPublisher publishes recorded events after commit when no outbox is configured.
func WithPublisher(publisher shared.EventPublisher) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.publisher = publisher
	}
}

// WithScopeLogger sets the logger used for post-commit publish failures.
func WithScopeLogger(logger *zap.Logger) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.logger = logger
	}
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts ...TransactionScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back together with the
// events it recorded. If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	var committed []shared.DomainEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		if err := fn(repos); err != nil {
			return err
		}
		if len(repos.events) == 0 {
			return nil
		}
		if s.outbox != nil {
			return s.outbox.SaveEvents(ctx, tx, repos.events...)
		}
		committed = repos.events
		return nil
	})
	if err != nil {
		return err
	}

	if len(committed) > 0 && s.publisher != nil {
		// the state change is already durable; a publish failure must not undo it
		if pubErr := s.publisher.Publish(ctx, committed...); pubErr != nil {
			s.logger.Error("failed to publish events after commit",
				zap.Int("event_count", len(committed)),
				zap.Error(pubErr),
			)
		}
	}
	return nil
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	events []shared.DomainEvent
}

// StockRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StockRepo() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

// MovementRepo returns the journal repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// ReservationRepo returns the reservation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReservationRepo() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

// TransferRepo returns the transfer repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransferRepo() inventory.TransferRepository {
	return NewGormTransferRepository(r.tx)
}

// StockCountRepo returns the stock count repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StockCountRepo() inventory.StockCountRepository {
	return NewGormStockCountRepository(r.tx)
}

// AdjustmentRepo returns the adjustment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AdjustmentRepo() inventory.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.tx)
}

// LotRepo returns the lot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) LotRepo() inventory.LotBatchRepository {
	return NewGormLotBatchRepository(r.tx)
}

// SerialRepo returns the serial number repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SerialRepo() inventory.SerialNumberRepository {
	return NewGormSerialNumberRepository(r.tx)
}

// ReorderRuleRepo returns the reorder rule repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReorderRuleRepo() inventory.ReorderRuleRepository {
	return NewGormReorderRuleRepository(r.tx)
}

// SuggestionRepo returns the suggestion repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SuggestionRepo() inventory.ReorderSuggestionRepository {
	return NewGormReorderSuggestionRepository(r.tx)
}

// RecordEvents queues events until the transaction ends.
func (r *gormTransactionalRepositories) RecordEvents(events ...shared.DomainEvent) {
	r.events = append(r.events, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
