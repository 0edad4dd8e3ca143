package inventory_test

import (
	"context"
	"testing"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustStock_ReceiptAndIssue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	key := e.key()

	receipt := e.receive(t, key, 100, 10)
	assert.Equal(t, string(inventory.MovementTypeReceipt), receipt.MovementType)
	assertDec(t, 100, receipt.Quantity)
	assert.Contains(t, e.published.types(), inventory.EventTypeStockChanged)
	assert.Contains(t, e.published.types(), inventory.EventTypeStockMovementRecorded)

	issue, err := e.stockService().AdjustStock(ctx, e.tenant, appinv.AdjustStockRequest{
		StockKeyRequest: key,
		Delta:           dec(-40),
		Reason:          "damaged",
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.MovementTypeAdjustment), issue.MovementType)

	s := e.stock(t, key)
	assertDec(t, 60, s.Quantity)
	assertDec(t, 60, s.Available)
	assertDec(t, 10, s.UnitCost)
	e.requireConsistent(t, key)
}

func TestAdjustStock_MovingAverageCost(t *testing.T) {
	e := newEnv(t)
	key := e.key()

	e.receive(t, key, 100, 10)
	e.receive(t, key, 100, 20)

	s := e.stock(t, key)
	assertDec(t, 200, s.Quantity)
	assertDec(t, 15, s.UnitCost)
}

func TestAdjustStock_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	key := e.key()
	e.receive(t, key, 10, 1)

	t.Run("zero delta", func(t *testing.T) {
		_, err := e.stockService().AdjustStock(ctx, e.tenant, appinv.AdjustStockRequest{
			StockKeyRequest: key, Delta: dec(0), Reason: "noop",
		})
		requireKind(t, err, shared.KindValidation)
	})

	t.Run("missing reason", func(t *testing.T) {
		_, err := e.stockService().AdjustStock(ctx, e.tenant, appinv.AdjustStockRequest{
			StockKeyRequest: key, Delta: dec(1),
		})
		requireKind(t, err, shared.KindValidation)
	})

	t.Run("would go negative", func(t *testing.T) {
		e.published.reset()
		_, err := e.stockService().AdjustStock(ctx, e.tenant, appinv.AdjustStockRequest{
			StockKeyRequest: key, Delta: dec(-11), Reason: "shrinkage",
		})
		requireKind(t, err, shared.KindInvalidQuantity)
		assert.Empty(t, e.published.types(), "rolled back commands publish nothing")
		assertDec(t, 10, e.stock(t, key).Quantity)
	})
}

func TestMoveStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	src := e.key()
	dst := src
	dst.LocationID = testutil.NewTestUUID("bin-b")
	e.receive(t, src, 50, 4)

	resp, err := e.stockService().MoveStock(ctx, e.tenant, appinv.MoveStockRequest{
		StockKeyRequest:       src,
		DestinationLocationID: dst.LocationID,
		Quantity:              dec(20),
		Reason:                "replenish pick face",
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.MovementTypeTransferOut), resp.Outbound.MovementType)
	assert.Equal(t, string(inventory.MovementTypeTransferIn), resp.Inbound.MovementType)
	assertDec(t, 30, resp.Source.Quantity)
	assertDec(t, 20, resp.Destination.Quantity)
	assertDec(t, 4, resp.Destination.UnitCost)

	e.requireConsistent(t, src)
	e.requireConsistent(t, dst)

	level, err := e.stockService().GetStockLevel(ctx, e.tenant, e.product, &e.warehouse)
	require.NoError(t, err)
	assertDec(t, 50, level.OnHand)

	t.Run("more than available", func(t *testing.T) {
		_, err := e.stockService().MoveStock(ctx, e.tenant, appinv.MoveStockRequest{
			StockKeyRequest:       src,
			DestinationLocationID: dst.LocationID,
			Quantity:              dec(31),
		})
		requireKind(t, err, shared.KindInsufficientStock)
	})

	t.Run("same location", func(t *testing.T) {
		_, err := e.stockService().MoveStock(ctx, e.tenant, appinv.MoveStockRequest{
			StockKeyRequest:       src,
			DestinationLocationID: src.LocationID,
			Quantity:              dec(1),
		})
		requireKind(t, err, shared.KindValidation)
	})
}

func TestReverseMovement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	key := e.key()
	receipt := e.receive(t, key, 25, 2)

	reversal, err := e.stockService().ReverseMovement(ctx, e.tenant, appinv.ReverseMovementRequest{
		MovementID: receipt.ID,
		Reason:     "posted to wrong product",
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.MovementTypeReversal), reversal.MovementType)
	require.NotNil(t, reversal.ReversedMovementID)
	assert.Equal(t, receipt.ID, *reversal.ReversedMovementID)
	assertDec(t, -25, reversal.Quantity)

	assertDec(t, 0, e.stock(t, key).Quantity)
	e.requireConsistent(t, key)

	t.Run("twice", func(t *testing.T) {
		_, err := e.stockService().ReverseMovement(ctx, e.tenant, appinv.ReverseMovementRequest{
			MovementID: receipt.ID, Reason: "again",
		})
		requireKind(t, err, shared.KindConflict)
	})

	t.Run("a reversal", func(t *testing.T) {
		_, err := e.stockService().ReverseMovement(ctx, e.tenant, appinv.ReverseMovementRequest{
			MovementID: reversal.ID, Reason: "undo undo",
		})
		requireKind(t, err, shared.KindConflict)
	})

	t.Run("unknown movement", func(t *testing.T) {
		_, err := e.stockService().ReverseMovement(ctx, e.tenant, appinv.ReverseMovementRequest{
			MovementID: testutil.NewTestUUID("missing"), Reason: "x",
		})
		requireKind(t, err, shared.KindNotFound)
	})
}

func TestGetStock_UnusedKeyReadsZero(t *testing.T) {
	e := newEnv(t)
	s := e.stock(t, e.key())
	assertDec(t, 0, s.Quantity)
	assertDec(t, 0, s.Available)
}

func TestListMovements(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	key := e.key()
	e.receive(t, key, 5, 1)
	e.receive(t, key, 7, 1)
	_, err := e.stockService().AdjustStock(ctx, e.tenant, appinv.AdjustStockRequest{
		StockKeyRequest: key, Delta: dec(-2), Reason: "sample",
	})
	require.NoError(t, err)

	page, err := e.stockService().ListMovements(ctx, e.tenant, appinv.MovementListFilter{
		ProductID:     e.product,
		MovementTypes: []string{string(inventory.MovementTypeReceipt)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	all, err := e.stockService().ListMovements(ctx, e.tenant, appinv.MovementListFilter{ProductID: e.product})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	other, err := e.stockService().ListMovements(ctx, testutil.NewTestUUID("other-tenant"), appinv.MovementListFilter{})
	require.NoError(t, err)
	assert.Zero(t, other.Total)
}
