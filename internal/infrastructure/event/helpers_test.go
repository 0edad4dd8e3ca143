package event

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/cache"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEvent is a minimal payload registered under arbitrary event types.
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), tenantID),
		Data:            "test data",
	}
}

// newStockChangedEvent builds a real receipt of 10 units at cost 3.
func newStockChangedEvent(t *testing.T, tenantID uuid.UUID) *inventory.StockChangedEvent {
	t.Helper()
	stock, err := inventory.NewStock(inventory.StockKey{
		TenantID:    tenantID,
		ProductID:   uuid.New(),
		WarehouseID: uuid.New(),
	})
	require.NoError(t, err)
	require.NoError(t, stock.ApplyDelta(decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(3)))
	return inventory.NewStockChangedEvent(stock, decimal.NewFromInt(10), decimal.Zero)
}

// testHandler records every event it is given, including ones it then fails.
type testHandler struct {
	mu      sync.Mutex
	types   []string
	seen    []shared.DomainEvent
	failure error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{types: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return h.failure
}

func (h *testHandler) EventTypes() []string { return h.types }

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	h.failure = err
	h.mu.Unlock()
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.seen...)
}

func newMemoryStore(t *testing.T) *cache.InMemoryIdempotencyStore {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}
