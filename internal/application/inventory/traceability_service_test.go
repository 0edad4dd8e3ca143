package inventory_test

import (
	"context"
	"testing"
	"time"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) traceabilityService() *appinv.TraceabilityService {
	svc := appinv.NewTraceabilityService(e.scope, e.log)
	svc.SetClock(e.clock.Now)
	return svc
}

func TestLot_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.traceabilityService()
	expiry := e.clock.Now().AddDate(0, 0, 10)

	lot, err := svc.CreateLot(ctx, e.tenant, appinv.CreateLotRequest{
		ProductID:  e.product,
		LotNumber:  "LOT-2026-03-A",
		Quantity:   dec(100),
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.LotStatusPending), lot.Status)
	assert.Equal(t, 10, lot.DaysUntilExpiry)

	_, err = svc.ReserveLot(ctx, e.tenant, lot.ID, dec(10))
	requireKind(t, err, shared.KindValidation)

	lot, err = svc.ApproveLot(ctx, e.tenant, lot.ID, testutil.NewTestUUID("qa"))
	require.NoError(t, err)
	assert.Equal(t, string(inventory.LotStatusApproved), lot.Status)

	lot, err = svc.ReserveLot(ctx, e.tenant, lot.ID, dec(30))
	require.NoError(t, err)
	assertDec(t, 70, lot.AvailableQuantity)

	_, err = svc.ConsumeLot(ctx, e.tenant, lot.ID, dec(80))
	requireKind(t, err, shared.KindInsufficientStock)

	lot, err = svc.ConsumeLot(ctx, e.tenant, lot.ID, dec(70))
	require.NoError(t, err)
	assertDec(t, 30, lot.CurrentQuantity)

	lot, err = svc.ReleaseLot(ctx, e.tenant, lot.ID, dec(30))
	require.NoError(t, err)
	assertDec(t, 0, lot.ReservedQuantity)

	lot, err = svc.ConsumeLot(ctx, e.tenant, lot.ID, dec(30))
	require.NoError(t, err)
	assert.Equal(t, string(inventory.LotStatusConsumed), lot.Status)

	types := e.published.types()
	assert.Contains(t, types, inventory.EventTypeLotCreated)
	assert.Contains(t, types, inventory.EventTypeLotApproved)
	assert.Contains(t, types, inventory.EventTypeLotConsumed)
}

func TestLot_QuarantineBlocksUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.traceabilityService()

	lot, err := svc.CreateLot(ctx, e.tenant, appinv.CreateLotRequest{ProductID: e.product, LotNumber: "LOT-Q", Quantity: dec(20)})
	require.NoError(t, err)
	_, err = svc.ApproveLot(ctx, e.tenant, lot.ID, testutil.NewTestUUID("qa"))
	require.NoError(t, err)

	_, err = svc.QuarantineLot(ctx, e.tenant, lot.ID, "")
	requireKind(t, err, shared.KindValidation)

	lot, err = svc.QuarantineLot(ctx, e.tenant, lot.ID, "supplier recall")
	require.NoError(t, err)
	assert.Equal(t, "supplier recall", lot.QuarantineReason)

	_, err = svc.ConsumeLot(ctx, e.tenant, lot.ID, dec(1))
	requireKind(t, err, shared.KindValidation)
	_, err = svc.ReserveLot(ctx, e.tenant, lot.ID, dec(1))
	requireKind(t, err, shared.KindValidation)

	lot, err = svc.ReleaseLotQuarantine(ctx, e.tenant, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, string(inventory.LotStatusApproved), lot.Status)
	assert.Empty(t, lot.QuarantineReason)
}

func TestLot_NumberUniquePerProduct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.traceabilityService()
	req := appinv.CreateLotRequest{ProductID: e.product, LotNumber: "LOT-1", Quantity: dec(5)}

	_, err := svc.CreateLot(ctx, e.tenant, req)
	require.NoError(t, err)
	_, err = svc.CreateLot(ctx, e.tenant, req)
	requireKind(t, err, shared.KindConflict)

	req.ProductID = testutil.NewTestUUID("product-2")
	_, err = svc.CreateLot(ctx, e.tenant, req)
	require.NoError(t, err)

	got, err := svc.GetLotByNumber(ctx, e.tenant, e.product, "LOT-1")
	require.NoError(t, err)
	assertDec(t, 5, got.InitialQuantity)
}

func TestLot_ExpiryQueries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.traceabilityService()
	soon := e.clock.Now().AddDate(0, 0, 3)
	later := e.clock.Now().AddDate(0, 0, 40)

	for number, expiry := range map[string]time.Time{"LOT-SOON": soon, "LOT-LATER": later} {
		expiry := expiry
		lot, err := svc.CreateLot(ctx, e.tenant, appinv.CreateLotRequest{
			ProductID: e.product, LotNumber: number, Quantity: dec(10), ExpiryDate: &expiry,
		})
		require.NoError(t, err)
		_, err = svc.ApproveLot(ctx, e.tenant, lot.ID, testutil.NewTestUUID("qa"))
		require.NoError(t, err)
	}

	expiring, err := svc.ListExpiringLots(ctx, e.tenant, 7)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "LOT-SOON", expiring[0].LotNumber)

	_, err = svc.ListExpiringLots(ctx, e.tenant, 0)
	requireKind(t, err, shared.KindValidation)

	e.clock.Advance(4 * 24 * time.Hour)
	expired, err := svc.ListExpiredLots(ctx, e.tenant)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, string(inventory.LotStatusExpired), expired[0].Status)

	_, err = svc.ReserveLot(ctx, e.tenant, expired[0].ID, dec(1))
	requireKind(t, err, shared.KindValidation)
}

func TestSerial_SaleStartsWarranty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.traceabilityService()
	customer := testutil.NewTestUUID("customer")

	sn, err := svc.ReceiveSerial(ctx, e.tenant, appinv.ReceiveSerialRequest{
		ProductID:      e.product,
		Serial:         "SN-0001",
		WarehouseID:    &e.warehouse,
		WarrantyMonths: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.SerialStatusReceived), sn.Status)

	_, err = svc.ReserveSerial(ctx, e.tenant, sn.ID, "SO-1")
	requireKind(t, err, shared.KindValidation)

	_, err = svc.MakeSerialAvailable(ctx, e.tenant, sn.ID)
	require.NoError(t, err)
	sn, err = svc.ReserveSerial(ctx, e.tenant, sn.ID, "SO-1")
	require.NoError(t, err)
	assert.Equal(t, "SO-1", sn.ReservationRef)

	sn, err = svc.SellSerial(ctx, e.tenant, sn.ID, appinv.SellSerialRequest{CustomerID: customer})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.SerialStatusSold), sn.Status)
	require.NotNil(t, sn.WarrantyEnd)
	assert.True(t, e.clock.Now().AddDate(1, 0, 0).Equal(*sn.WarrantyEnd))
	assert.True(t, sn.UnderWarranty)

	_, err = svc.ScrapSerial(ctx, e.tenant, sn.ID, "returned broken")
	requireKind(t, err, shared.KindValidation)

	byNumber, err := svc.GetSerialByNumber(ctx, e.tenant, e.product, "SN-0001")
	require.NoError(t, err)
	assert.Equal(t, sn.ID, byNumber.ID)
}

func TestSerial_DefectiveThenScrapped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.traceabilityService()

	sn, err := svc.ReceiveSerial(ctx, e.tenant, appinv.ReceiveSerialRequest{ProductID: e.product, Serial: "SN-0002"})
	require.NoError(t, err)

	_, err = svc.ReceiveSerial(ctx, e.tenant, appinv.ReceiveSerialRequest{ProductID: e.product, Serial: "SN-0002"})
	requireKind(t, err, shared.KindConflict)

	sn, err = svc.MarkSerialDefective(ctx, e.tenant, sn.ID, "dead on arrival")
	require.NoError(t, err)
	assert.Equal(t, string(inventory.SerialStatusDefective), sn.Status)

	_, err = svc.MakeSerialAvailable(ctx, e.tenant, sn.ID)
	requireKind(t, err, shared.KindValidation)

	sn, err = svc.ScrapSerial(ctx, e.tenant, sn.ID, "not repairable")
	require.NoError(t, err)
	assert.Equal(t, string(inventory.SerialStatusScrapped), sn.Status)

	page, err := svc.ListSerials(ctx, e.tenant, e.product, appinv.SerialListFilter{
		Statuses: []string{string(inventory.SerialStatusScrapped)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
