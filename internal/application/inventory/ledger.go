package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Ledger is the only writer of stock rows. It is bound to one transaction.
type Ledger struct {
	repos TransactionalRepositories
}

// NewLedger binds a ledger to the repositories of a transaction.
func NewLedger(repos TransactionalRepositories) *Ledger {
	return &Ledger{repos: repos}
}

// LedgerDelta is one change to apply to a ledger row.
type LedgerDelta struct {
	Key      inventory.StockKey
	Quantity decimal.Decimal
	Reserved decimal.Decimal
	UnitCost decimal.Decimal
}

// GetOrCreate returns the row for key, creating an empty one on first use.
func (l *Ledger) GetOrCreate(ctx context.Context, key inventory.StockKey) (*inventory.Stock, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return l.repos.StockRepo().GetOrCreate(ctx, key)
}

// Read returns the row for key. A key that was never used reads as an empty row
// that is not persisted.
func (l *Ledger) Read(ctx context.Context, key inventory.StockKey) (*inventory.Stock, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	stock, err := l.repos.StockRepo().FindByKey(ctx, key)
	if err == nil {
		return stock, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return inventory.NewStock(key)
	}
	return nil, err
}

// RequireAvailable fails with INSUFFICIENT_STOCK when key has less than quantity available.
func (l *Ledger) RequireAvailable(ctx context.Context, key inventory.StockKey, quantity decimal.Decimal) error {
	stock, err := l.Read(ctx, key)
	if err != nil {
		return err
	}
	if stock.Available().LessThan(quantity) {
		return insufficientStock(key, stock.Available(), quantity)
	}
	return nil
}

// ApplyDelta validates and persists one change. The write is conditional on the
// row version that was read, so a concurrent writer surfaces as OPTIMISTIC_LOCK_FAILED.
func (l *Ledger) ApplyDelta(ctx context.Context, d LedgerDelta) (*inventory.Stock, error) {
	stock, err := l.GetOrCreate(ctx, d.Key)
	if err != nil {
		return nil, err
	}
	if err := stock.ApplyDelta(d.Quantity, d.Reserved, d.UnitCost); err != nil {
		return nil, err
	}
	if !stock.IsDirty() {
		return stock, nil
	}
	if err := l.repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
		return nil, err
	}
	recordEvents(l.repos, stock)
	return stock, nil
}

// ApplyDeltas applies several changes in canonical key order so that concurrent
// multi-key commands lock rows in the same sequence.
func (l *Ledger) ApplyDeltas(ctx context.Context, deltas []LedgerDelta) ([]*inventory.Stock, error) {
	ordered := make([]LedgerDelta, len(deltas))
	copy(ordered, deltas)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Key.String() < ordered[j].Key.String()
	})

	out := make([]*inventory.Stock, 0, len(ordered))
	for _, d := range ordered {
		stock, err := l.ApplyDelta(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, stock)
	}
	return out, nil
}

// ConsistencyReport compares a ledger row with its journal.
type ConsistencyReport struct {
	Key             inventory.StockKey `json:"key"`
	LedgerQuantity  decimal.Decimal    `json:"ledger_quantity"`
	JournalQuantity decimal.Decimal    `json:"journal_quantity"`
	Consistent      bool               `json:"consistent"`
}

// VerifyConsistency checks that the row's quantity equals the sum of its journal entries.
func (l *Ledger) VerifyConsistency(ctx context.Context, key inventory.StockKey) (*ConsistencyReport, error) {
	stock, err := l.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	sum, err := l.repos.MovementRepo().SumForKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("sum journal for %s: %w", key, err)
	}
	return &ConsistencyReport{
		Key:             key,
		LedgerQuantity:  stock.Quantity,
		JournalQuantity: sum,
		Consistent:      stock.Quantity.Equal(sum),
	}, nil
}

func insufficientStock(key inventory.StockKey, available, requested decimal.Decimal) error {
	return shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK",
		fmt.Sprintf("product %s in warehouse %s has %s available, %s requested",
			key.ProductID, key.WarehouseID, available, requested))
}
