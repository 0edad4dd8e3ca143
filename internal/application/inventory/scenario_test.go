package inventory_test

import (
	"context"
	"testing"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStockLifecycle_ReserveTransferCountReorder walks one product through a sales
// reservation at X, a transfer X to Y with damage, a count at Y and a reorder at X. The
// steps share state and run in order.
func TestStockLifecycle_ReserveTransferCountReorder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	approver := testutil.NewTestUUID("approver")
	whseY := testutil.NewTestUUID("warehouse-y")
	x := e.key()
	y := appinv.StockKeyRequest{ProductID: e.product, WarehouseID: whseY}

	stock := e.stockService()
	reservations := e.reservationService(0)
	transfers := appinv.NewTransferService(e.scope, e.log)
	counts := appinv.NewStockCountService(e.scope, e.log)
	reorder := e.reorderService()

	e.receive(t, x, 100, 4)

	steps := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"reserve and fulfill 30 at X", func(t *testing.T) {
			r, err := reservations.CreateReservation(ctx, e.tenant, appinv.CreateReservationRequest{
				StockKeyRequest: x,
				Quantity:        dec(30),
			})
			require.NoError(t, err)
			s := e.stock(t, x)
			assertDec(t, 30, s.ReservedQuantity)
			assertDec(t, 70, s.Available)

			_, err = reservations.FulfillReservation(ctx, e.tenant, r.ID, appinv.FulfillReservationRequest{Quantity: decPtr(30)})
			require.NoError(t, err)
			s = e.stock(t, x)
			assertDec(t, 70, s.Quantity)
			assertDec(t, 0, s.ReservedQuantity)

			issues, err := stock.ListMovements(ctx, e.tenant, appinv.MovementListFilter{
				WarehouseID:   e.warehouse,
				MovementTypes: []string{string(inventory.MovementTypeIssue)},
			})
			require.NoError(t, err)
			require.Equal(t, int64(1), issues.Total)
			assertDec(t, -30, issues.Items[0].Quantity)
		}},
		{"transfer 50 from X to Y, 2 damaged", func(t *testing.T) {
			tr := e.newTransfer(t, transfers, whseY, 50)
			_, err := transfers.SubmitTransfer(ctx, e.tenant, tr.ID)
			require.NoError(t, err)
			_, err = transfers.ApproveTransfer(ctx, e.tenant, tr.ID, approver)
			require.NoError(t, err)
			_, err = transfers.ShipTransfer(ctx, e.tenant, tr.ID, appinv.ShipTransferRequest{
				Lines: []appinv.ShipLineRequest{{ItemID: tr.Items[0].ID, Quantity: dec(50)}},
			})
			require.NoError(t, err)
			assertDec(t, 20, e.stock(t, x).Quantity)

			done, err := transfers.ReceiveTransfer(ctx, e.tenant, tr.ID, appinv.ReceiveTransferRequest{
				Lines: []appinv.ReceiveLineRequest{{ItemID: tr.Items[0].ID, Received: dec(48), Damaged: dec(2)}},
			})
			require.NoError(t, err)
			assert.Equal(t, string(inventory.TransferStatusReceived), done.Status)
			assertDec(t, 48, e.stock(t, y).Quantity)
		}},
		{"count at Y finds 45", func(t *testing.T) {
			c, err := counts.CreateStockCount(ctx, e.tenant, appinv.CreateStockCountRequest{
				WarehouseID:     whseY,
				IncludeAllStock: true,
			})
			require.NoError(t, err)
			c, err = counts.StartCount(ctx, e.tenant, c.ID)
			require.NoError(t, err)
			item := itemFor(t, c, e.product)
			assertDec(t, 48, item.SystemQuantity)

			_, err = counts.RecordCountItem(ctx, e.tenant, c.ID, appinv.RecordCountItemRequest{ItemID: item.ID, CountedQuantity: dec(45)})
			require.NoError(t, err)
			_, err = counts.CompleteCount(ctx, e.tenant, c.ID)
			require.NoError(t, err)
			c, err = counts.ApproveCount(ctx, e.tenant, c.ID, approver)
			require.NoError(t, err)
			require.NotNil(t, c.AdjustmentID)

			adj, err := appinv.NewAdjustmentService(e.scope, e.log).GetAdjustment(ctx, e.tenant, *c.AdjustmentID)
			require.NoError(t, err)
			require.Len(t, adj.Items, 1)
			assertDec(t, -3, adj.Items[0].Variance)
			assertDec(t, 45, e.stock(t, y).Quantity)
		}},
		{"reversing the transfer-in would take Y negative", func(t *testing.T) {
			ins, err := stock.ListMovements(ctx, e.tenant, appinv.MovementListFilter{
				WarehouseID:   whseY,
				MovementTypes: []string{string(inventory.MovementTypeTransferIn)},
			})
			require.NoError(t, err)
			require.Equal(t, int64(1), ins.Total)
			assertDec(t, 48, ins.Items[0].Quantity)

			_, err = stock.ReverseMovement(ctx, e.tenant, appinv.ReverseMovementRequest{
				MovementID: ins.Items[0].ID,
				Reason:     "received at the wrong warehouse",
			})
			requireKind(t, err, shared.KindInvalidQuantity)

			assertDec(t, 45, e.stock(t, y).Quantity)
			reversals, err := stock.ListMovements(ctx, e.tenant, appinv.MovementListFilter{
				WarehouseID:   whseY,
				MovementTypes: []string{string(inventory.MovementTypeReversal)},
			})
			require.NoError(t, err)
			assert.Zero(t, reversals.Total)
		}},
		{"reorder below 25 at X suggests once", func(t *testing.T) {
			rule := e.productRule(t, reorder, func(r *appinv.CreateReorderRuleRequest) {
				r.TriggerBelowQuantity = dec(25)
			})
			res, err := reorder.EvaluateReorderRule(ctx, e.tenant, rule.ID)
			require.NoError(t, err)
			require.Len(t, res.Created, 1)
			assertDec(t, 20, res.Created[0].AvailableStock)
			// 100 - 20 rounded up to a pack of 12
			assertDec(t, 84, res.Created[0].SuggestedQuantity)

			again, err := reorder.EvaluateReorderRule(ctx, e.tenant, rule.ID)
			require.NoError(t, err)
			assert.Empty(t, again.Created)

			pending, err := reorder.ListPendingSuggestions(ctx, e.tenant, appinv.SuggestionListFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), pending.Total)
		}},
	}

	for _, step := range steps {
		if !t.Run(step.name, step.run) {
			t.FailNow()
		}
	}

	for _, key := range []appinv.StockKeyRequest{x, y} {
		e.requireConsistent(t, key)
	}
}

func TestTransfer_ApprovedCannotBeRejectedOrCancelled(t *testing.T) {
	tests := []struct {
		name   string
		action func(ctx context.Context, svc *appinv.TransferService, tenant, id uuid.UUID) error
	}{
		{"reject", func(ctx context.Context, svc *appinv.TransferService, tenant, id uuid.UUID) error {
			_, err := svc.RejectTransfer(ctx, tenant, id, "plan changed")
			return err
		}},
		{"cancel", func(ctx context.Context, svc *appinv.TransferService, tenant, id uuid.UUID) error {
			_, err := svc.CancelTransfer(ctx, tenant, id, "plan changed")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			svc := appinv.NewTransferService(e.scope, e.log)
			e.receive(t, e.key(), 10, 1)

			tr := e.newTransfer(t, svc, testutil.NewTestUUID("warehouse-2"), 5)
			_, err := svc.SubmitTransfer(ctx, e.tenant, tr.ID)
			require.NoError(t, err)
			_, err = svc.ApproveTransfer(ctx, e.tenant, tr.ID, testutil.NewTestUUID("approver"))
			require.NoError(t, err)

			err = tt.action(ctx, svc, e.tenant, tr.ID)
			requireKind(t, err, shared.KindValidation)
			assert.ErrorIs(t, err, shared.ErrInvalidState)

			got, err := svc.GetTransfer(ctx, e.tenant, tr.ID)
			require.NoError(t, err)
			assert.Equal(t, string(inventory.TransferStatusApproved), got.Status)
		})
	}
}
