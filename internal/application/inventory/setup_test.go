package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturePublisher collects events published after commit.
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// last returns the most recent event of the given type, or nil.
func (p *capturePublisher) last(eventType string) shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].EventType() == eventType {
			return p.events[i]
		}
	}
	return nil
}

func (p *capturePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	scope     *persistence.GormTransactionScope
	published *capturePublisher
	clock     *fixedClock
	log       *zap.Logger
	tenant    uuid.UUID
	product   uuid.UUID
	warehouse uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	pub := &capturePublisher{}
	log := zap.NewNop()
	return &env{
		scope:     persistence.NewGormTransactionScope(db, persistence.WithPublisher(pub), persistence.WithScopeLogger(log)),
		published: pub,
		clock:     &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		log:       log,
		tenant:    testutil.TestTenantID(),
		product:   testutil.NewTestUUID("product-1"),
		warehouse: testutil.NewTestUUID("warehouse-1"),
	}
}

func (e *env) key() appinv.StockKeyRequest {
	return appinv.StockKeyRequest{ProductID: e.product, WarehouseID: e.warehouse}
}

func (e *env) stockService() *appinv.StockService {
	return appinv.NewStockService(e.scope, e.log)
}

// receive puts qty on hand at key through the journal.
func (e *env) receive(t *testing.T, key appinv.StockKeyRequest, qty, unitCost int64) *appinv.MovementResponse {
	t.Helper()
	m, err := e.stockService().AdjustStock(context.Background(), e.tenant, appinv.AdjustStockRequest{
		StockKeyRequest: key,
		Delta:           dec(qty),
		UnitCost:        dec(unitCost),
		Reason:          "opening balance",
	})
	require.NoError(t, err)
	return m
}

func (e *env) stock(t *testing.T, key appinv.StockKeyRequest) *appinv.StockResponse {
	t.Helper()
	s, err := e.stockService().GetStock(context.Background(), e.tenant, key)
	require.NoError(t, err)
	return s
}

// requireConsistent asserts the ledger row equals the sum of its journal.
func (e *env) requireConsistent(t *testing.T, key appinv.StockKeyRequest) {
	t.Helper()
	report, err := e.stockService().VerifyConsistency(context.Background(), e.tenant, key)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "ledger %s, journal %s", report.LedgerQuantity, report.JournalQuantity)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func assertDec(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %d, got %s", want, got)
}

func requireKind(t *testing.T, err error, kind shared.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, shared.KindOf(err), "error: %v", err)
}
