package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLot(t *testing.T, qty int64, expiry *time.Time) *LotBatch {
	t.Helper()
	lot, err := NewLotBatch(uuid.New(), LotSpec{ProductID: uuid.New(), LotNumber: "LOT-1", Quantity: dec(qty), ExpiryDate: expiry})
	require.NoError(t, err)
	return lot
}

func TestLotBatch_Lifecycle(t *testing.T) {
	now := time.Now()
	lot := newTestLot(t, 10, nil)
	assert.Equal(t, LotStatusPending, lot.Status)

	err := lot.Reserve(dec(1), now)
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "pending lots cannot be reserved")

	require.NoError(t, lot.Approve(uuid.New()))
	require.NoError(t, lot.Reserve(dec(4), now))
	assert.True(t, lot.AvailableQuantity().Equal(dec(6)))

	err = lot.Reserve(dec(7), now)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	err = lot.Consume(dec(7))
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock), "consume cannot go below reserved")

	require.NoError(t, lot.Consume(dec(6)))
	assert.True(t, lot.CurrentQuantity.Equal(dec(4)))

	assert.Error(t, lot.Release(dec(5)))
	require.NoError(t, lot.Release(dec(4)))
	require.NoError(t, lot.Consume(dec(4)))
	assert.Equal(t, LotStatusConsumed, lot.Status)
	assert.True(t, errors.Is(lot.Quarantine("mold"), shared.ErrInvalidState))

	var types []string
	for _, e := range lot.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{EventTypeLotCreated, EventTypeLotApproved, EventTypeLotConsumed, EventTypeLotConsumed}, types)
}

func TestLotBatch_Quarantine(t *testing.T) {
	lot := newTestLot(t, 10, nil)
	assert.True(t, errors.Is(lot.Quarantine(""), shared.ErrValidation))
	require.NoError(t, lot.Quarantine("contamination"))
	assert.True(t, errors.Is(lot.Consume(dec(1)), shared.ErrInvalidState))
	require.NoError(t, lot.ReleaseQuarantine())
	assert.Equal(t, LotStatusApproved, lot.Status)
	assert.Empty(t, lot.QuarantineReason)
}

func TestLotBatch_EffectiveStatus(t *testing.T) {
	now := time.Now()
	expiry := now.Add(48 * time.Hour)
	lot := newTestLot(t, 10, &expiry)
	require.NoError(t, lot.Approve(uuid.Nil))

	assert.Equal(t, LotStatusApproved, lot.EffectiveStatus(now))
	assert.Equal(t, 2, lot.DaysUntilExpiry(now))
	later := now.Add(72 * time.Hour)
	assert.Equal(t, LotStatusExpired, lot.EffectiveStatus(later))
	assert.Equal(t, LotStatusApproved, lot.Status, "expired is never stored")
	assert.True(t, errors.Is(lot.Reserve(dec(1), later), shared.ErrInvalidState))
}

func TestNewLotBatch_Validation(t *testing.T) {
	made := time.Now()
	before := made.Add(-time.Hour)
	_, err := NewLotBatch(uuid.New(), LotSpec{ProductID: uuid.New(), LotNumber: "L", Quantity: dec(1), ManufacturedDate: &made, ExpiryDate: &before})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	_, err = NewLotBatch(uuid.New(), LotSpec{ProductID: uuid.New(), LotNumber: "L", Quantity: dec(0)})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestSerialNumber_Lifecycle(t *testing.T) {
	sn, err := NewSerialNumber(uuid.New(), SerialSpec{ProductID: uuid.New(), Serial: "SN-001", WarrantyMonths: 12})
	require.NoError(t, err)
	assert.Equal(t, SerialStatusReceived, sn.Status)

	assert.True(t, errors.Is(sn.Reserve("SO-1"), shared.ErrInvalidState))
	assert.True(t, errors.Is(sn.Sell(uuid.New(), uuid.Nil, time.Now()), shared.ErrInvalidState))

	require.NoError(t, sn.MakeAvailable())
	require.NoError(t, sn.Reserve("SO-1"))
	assert.Equal(t, "SO-1", sn.ReservationRef)
	require.NoError(t, sn.Release())
	assert.Empty(t, sn.ReservationRef)
	require.NoError(t, sn.Reserve("SO-2"))

	soldAt := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	customer := uuid.New()
	order := uuid.New()
	require.NoError(t, sn.Sell(customer, order, soldAt))
	assert.Equal(t, SerialStatusSold, sn.Status)
	assert.Equal(t, customer, *sn.CustomerID)
	assert.Equal(t, order, *sn.SalesOrderID)
	assert.Equal(t, soldAt.AddDate(0, 12, 0), *sn.WarrantyEnd)
	assert.True(t, sn.IsUnderWarranty(soldAt.AddDate(0, 6, 0)))
	assert.False(t, sn.IsUnderWarranty(soldAt.AddDate(1, 1, 0)))

	assert.True(t, errors.Is(sn.Scrap("broken"), shared.ErrInvalidState), "sold is terminal")
	assert.True(t, errors.Is(sn.MarkDefective("broken"), shared.ErrInvalidState))
}

func TestSerialNumber_DefectiveCanBeScrapped(t *testing.T) {
	sn, err := NewSerialNumber(uuid.New(), SerialSpec{ProductID: uuid.New(), Serial: "SN-002"})
	require.NoError(t, err)

	assert.True(t, errors.Is(sn.MarkDefective(""), shared.ErrValidation))
	require.NoError(t, sn.MarkDefective("dead on arrival"))
	assert.True(t, errors.Is(sn.MakeAvailable(), shared.ErrInvalidState))
	assert.True(t, errors.Is(sn.Release(), shared.ErrInvalidState))
	require.NoError(t, sn.Scrap("unrepairable"))
	assert.Equal(t, SerialStatusScrapped, sn.Status)
	assert.True(t, sn.Status.IsTerminal())
}

func TestSerialStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to SerialStatus
		ok       bool
	}{
		{SerialStatusReceived, SerialStatusAvailable, true},
		{SerialStatusAvailable, SerialStatusSold, true},
		{SerialStatusReserved, SerialStatusSold, true},
		{SerialStatusReceived, SerialStatusSold, false},
		{SerialStatusSold, SerialStatusAvailable, false},
		{SerialStatusDefective, SerialStatusScrapped, true},
		{SerialStatusDefective, SerialStatusAvailable, false},
		{SerialStatusScrapped, SerialStatusDefective, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}
