package inventory

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReservation(t *testing.T, qty int64, expiresAt *time.Time) *StockReservation {
	t.Helper()
	r, err := NewStockReservation(testKey(), "RSV-TEST", dec(qty), ReservationTypeSalesOrder,
		Reference{Type: "SALES_ORDER", Number: "SO-1"}, expiresAt, time.Now())
	require.NoError(t, err)
	return r
}

func TestNewStockReservation(t *testing.T) {
	now := time.Now()

	t.Run("defaults to manual type", func(t *testing.T) {
		r, err := NewStockReservation(testKey(), "RSV-1", dec(3), "", Reference{}, nil, now)
		require.NoError(t, err)
		assert.Equal(t, ReservationTypeManual, r.ReservationType)
		assert.Equal(t, ReservationStatusActive, r.Status)
		assert.True(t, r.Remaining().Equal(dec(3)))
	})

	tests := []struct {
		name    string
		number  string
		qty     decimal.Decimal
		typ     ReservationType
		expires *time.Time
	}{
		{"empty number", " ", dec(1), ReservationTypeManual, nil},
		{"zero quantity", "RSV-1", decimal.Zero, ReservationTypeManual, nil},
		{"unknown type", "RSV-1", dec(1), ReservationType("GIFT"), nil},
		{"expiry in the past", "RSV-1", dec(1), ReservationTypeManual, func() *time.Time { t := now.Add(-time.Minute); return &t }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStockReservation(testKey(), tt.number, tt.qty, tt.typ, Reference{}, tt.expires, now)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestGenerateReservationNumber(t *testing.T) {
	n := GenerateReservationNumber(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^RSV-20260309-[0-9A-F]{8}$`), n)
	assert.NotEqual(t, n, GenerateReservationNumber(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)))
}

func TestStockReservation_Fulfill(t *testing.T) {
	r := newTestReservation(t, 30, nil)

	require.NoError(t, r.Fulfill(dec(10)))
	assert.Equal(t, ReservationStatusActive, r.Status)
	assert.True(t, r.Remaining().Equal(dec(20)))

	err := r.Fulfill(dec(21))
	assert.True(t, errors.Is(err, shared.ErrValidation))

	require.NoError(t, r.Fulfill(dec(20)))
	assert.Equal(t, ReservationStatusFulfilled, r.Status)
	assert.NotNil(t, r.FulfilledAt)

	err = r.Fulfill(dec(1))
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestStockReservation_CancelIsIdempotent(t *testing.T) {
	r := newTestReservation(t, 30, nil)
	require.NoError(t, r.Fulfill(dec(5)))

	released, changed := r.Cancel("customer changed mind")
	assert.True(t, changed)
	assert.True(t, released.Equal(dec(25)))
	assert.Equal(t, ReservationStatusCancelled, r.Status)

	released, changed = r.Cancel("again")
	assert.False(t, changed)
	assert.True(t, released.IsZero())
	assert.Equal(t, "customer changed mind", r.CancelReason)
}

func TestStockReservation_Expire(t *testing.T) {
	now := time.Now()

	t.Run("not due", func(t *testing.T) {
		exp := now.Add(time.Hour)
		r := newTestReservation(t, 5, &exp)
		_, _, err := r.Expire(now)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("no expiry", func(t *testing.T) {
		r := newTestReservation(t, 5, nil)
		_, _, err := r.Expire(now)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("due then terminal no-op", func(t *testing.T) {
		exp := now.Add(time.Hour)
		r := newTestReservation(t, 5, &exp)
		later := now.Add(2 * time.Hour)
		assert.True(t, r.IsDue(later))

		released, changed, err := r.Expire(later)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, released.Equal(dec(5)))
		assert.Equal(t, ReservationStatusExpired, r.Status)

		released, changed, err = r.Expire(later)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, released.IsZero())
	})
}

func TestStockReservation_Extend(t *testing.T) {
	now := time.Now()
	r := newTestReservation(t, 5, nil)

	assert.Error(t, r.Extend(now.Add(-time.Second), now))
	require.NoError(t, r.Extend(now.Add(time.Hour), now))
	require.NotNil(t, r.ExpiresAt)

	r.Cancel("done")
	err := r.Extend(now.Add(2*time.Hour), now)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}
