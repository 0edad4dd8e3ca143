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

func (e *env) newTransfer(t *testing.T, svc *appinv.TransferService, dest uuid.UUID, qty int64) *appinv.TransferResponse {
	t.Helper()
	tr, err := svc.CreateTransfer(context.Background(), e.tenant, appinv.CreateTransferRequest{
		SourceWarehouseID:      e.warehouse,
		DestinationWarehouseID: dest,
		Items: []appinv.AddTransferItemRequest{{
			ProductID: e.product,
			Quantity:  dec(qty),
		}},
	})
	require.NoError(t, err)
	require.Len(t, tr.Items, 1)
	return tr
}

func TestTransfer_FullFlowWithDamage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := appinv.NewTransferService(e.scope, e.log)
	approver := testutil.NewTestUUID("approver")
	dest := testutil.NewTestUUID("warehouse-2")
	src := e.key()
	dst := appinv.StockKeyRequest{ProductID: e.product, WarehouseID: dest}
	e.receive(t, src, 40, 6)

	tr := e.newTransfer(t, svc, dest, 25)
	assert.Equal(t, string(inventory.TransferStatusDraft), tr.Status)

	tr, err := svc.SubmitTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)
	tr, err = svc.ApproveTransfer(ctx, e.tenant, tr.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, string(inventory.TransferStatusApproved), tr.Status)
	assertDec(t, 0, e.stock(t, src).ReservedQuantity)

	tr, err = svc.ShipTransfer(ctx, e.tenant, tr.ID, appinv.ShipTransferRequest{
		Lines: []appinv.ShipLineRequest{{ItemID: tr.Items[0].ID, Quantity: dec(20)}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.TransferStatusShipped), tr.Status)
	assertDec(t, 6, tr.Items[0].UnitCost)
	assertDec(t, 20, e.stock(t, src).Quantity)

	tr, err = svc.ReceiveTransfer(ctx, e.tenant, tr.ID, appinv.ReceiveTransferRequest{
		Lines: []appinv.ReceiveLineRequest{{ItemID: tr.Items[0].ID, Received: dec(18), Damaged: dec(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.TransferStatusReceived), tr.Status)
	assertDec(t, 2, tr.TotalDamaged)

	d := e.stock(t, dst)
	assertDec(t, 18, d.Quantity)
	assertDec(t, 6, d.UnitCost)
	e.requireConsistent(t, src)
	e.requireConsistent(t, dst)

	types := e.published.types()
	assert.Contains(t, types, inventory.EventTypeTransferShipped)
	assert.Contains(t, types, inventory.EventTypeTransferReceived)

	got, err := svc.GetTransferByNumber(ctx, e.tenant, tr.TransferNumber)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assertDec(t, 18, got.Items[0].ReceivedQuantity)
}

func TestTransfer_ApproveRequiresAvailableStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := appinv.NewTransferService(e.scope, e.log)
	e.receive(t, e.key(), 10, 1)

	tr := e.newTransfer(t, svc, testutil.NewTestUUID("warehouse-2"), 11)
	_, err := svc.SubmitTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)

	_, err = svc.ApproveTransfer(ctx, e.tenant, tr.ID, testutil.NewTestUUID("approver"))
	requireKind(t, err, shared.KindInsufficientStock)

	got, err := svc.GetTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, string(inventory.TransferStatusSubmitted), got.Status)
}

func TestTransfer_ShipFailsAtomicallyWhenStockWasTaken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := appinv.NewTransferService(e.scope, e.log)
	key := e.key()
	e.receive(t, key, 10, 1)

	tr := e.newTransfer(t, svc, testutil.NewTestUUID("warehouse-2"), 10)
	_, err := svc.SubmitTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)
	_, err = svc.ApproveTransfer(ctx, e.tenant, tr.ID, testutil.NewTestUUID("approver"))
	require.NoError(t, err)

	// approval reserves nothing, so a reservation can still take the stock
	_, err = e.reservationService(0).CreateReservation(ctx, e.tenant, appinv.CreateReservationRequest{
		StockKeyRequest: key, Quantity: dec(5),
	})
	require.NoError(t, err)

	_, err = svc.ShipTransfer(ctx, e.tenant, tr.ID, appinv.ShipTransferRequest{})
	requireKind(t, err, shared.KindInsufficientStock)

	got, err := svc.GetTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, string(inventory.TransferStatusApproved), got.Status)
	assertDec(t, 10, e.stock(t, key).Quantity)
	e.requireConsistent(t, key)
}

func TestTransfer_DraftEditingAndCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := appinv.NewTransferService(e.scope, e.log)

	tr := e.newTransfer(t, svc, testutil.NewTestUUID("warehouse-2"), 3)
	tr, err := svc.UpdateTransferItemQuantity(ctx, e.tenant, tr.ID, tr.Items[0].ID, dec(4))
	require.NoError(t, err)
	assertDec(t, 4, tr.Items[0].RequestedQuantity)

	tr, err = svc.AddTransferItem(ctx, e.tenant, tr.ID, appinv.AddTransferItemRequest{
		ProductID: testutil.NewTestUUID("product-2"),
		Quantity:  dec(1),
	})
	require.NoError(t, err)
	require.Len(t, tr.Items, 2)

	tr, err = svc.RemoveTransferItem(ctx, e.tenant, tr.ID, tr.Items[1].ID)
	require.NoError(t, err)
	require.Len(t, tr.Items, 1)

	reloaded, err := svc.GetTransfer(ctx, e.tenant, tr.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)

	cancelled, err := svc.CancelTransfer(ctx, e.tenant, tr.ID, "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, string(inventory.TransferStatusCancelled), cancelled.Status)

	_, err = svc.SubmitTransfer(ctx, e.tenant, tr.ID)
	requireKind(t, err, shared.KindValidation)
}

func TestTransfer_SameWarehouseRejected(t *testing.T) {
	e := newEnv(t)
	svc := appinv.NewTransferService(e.scope, e.log)

	_, err := svc.CreateTransfer(context.Background(), e.tenant, appinv.CreateTransferRequest{
		SourceWarehouseID:      e.warehouse,
		DestinationWarehouseID: e.warehouse,
	})
	requireKind(t, err, shared.KindValidation)
}
