package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These run against a real PostgreSQL so that row locks and unique indexes behave
// as in production.
func TestStockLedger_ConcurrentWriters(t *testing.T) {
	pg := testutil.NewPostgresDB(t)
	log := zap.NewNop()
	svc := appinv.NewStockService(NewGormTransactionScope(pg.DB, WithScopeLogger(log)), log)
	tenant := testutil.TestTenantID()

	t.Run("first writers on a new key all land", func(t *testing.T) {
		pg.Truncate(t)
		key := appinv.StockKeyRequest{ProductID: testutil.NewTestUUID("p-new"), WarehouseID: testutil.NewTestUUID("w-1")}

		const writers = 12
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.AdjustStock(context.Background(), tenant, appinv.AdjustStockRequest{
					StockKeyRequest: key, Delta: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(2), Reason: "receipt",
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		s, err := svc.GetStock(context.Background(), tenant, key)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(writers).Equal(s.Quantity), "quantity %s", s.Quantity)

		report, err := svc.VerifyConsistency(context.Background(), tenant, key)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
	})

	t.Run("issues never oversell", func(t *testing.T) {
		pg.Truncate(t)
		key := appinv.StockKeyRequest{ProductID: testutil.NewTestUUID("p-hot"), WarehouseID: testutil.NewTestUUID("w-1")}
		_, err := svc.AdjustStock(context.Background(), tenant, appinv.AdjustStockRequest{
			StockKeyRequest: key, Delta: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(1), Reason: "opening balance",
		})
		require.NoError(t, err)

		const issuers = 25
		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			rejected  atomic.Int32
		)
		for i := 0; i < issuers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.AdjustStock(context.Background(), tenant, appinv.AdjustStockRequest{
					StockKeyRequest: key, Delta: decimal.NewFromInt(-1), Reason: "pick",
				})
				switch {
				case err == nil:
					succeeded.Add(1)
				case shared.KindOf(err) == shared.KindInvalidQuantity:
					rejected.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(10), succeeded.Load())
		assert.Equal(t, int32(issuers-10), rejected.Load())

		s, err := svc.GetStock(context.Background(), tenant, key)
		require.NoError(t, err)
		assert.True(t, s.Quantity.IsZero(), "quantity %s", s.Quantity)

		report, err := svc.VerifyConsistency(context.Background(), tenant, key)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
	})
}
