package inventory_test

import (
	"context"
	"testing"
	"time"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServices(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := appinv.NewServices(e.scope, appinv.ServicesConfig{
		ReservationTTL:     time.Hour,
		SuggestionValidity: 48 * time.Hour,
	}, e.log)

	for name, built := range map[string]any{
		"stock": svc.Stock, "reservations": svc.Reservations, "transfers": svc.Transfers,
		"counts": svc.Counts, "adjustments": svc.Adjustments, "traceability": svc.Traceability,
		"reorder": svc.Reorder, "reservation expiry": svc.ReservationExpiry, "suggestion expiry": svc.SuggestionExpiry,
	} {
		assert.NotNil(t, built, name)
	}

	_, err := svc.Stock.AdjustStock(ctx, e.tenant, appinv.AdjustStockRequest{
		StockKeyRequest: e.key(), Delta: dec(10), UnitCost: dec(1), Reason: "opening balance",
	})
	require.NoError(t, err)

	r, err := svc.Reservations.CreateReservation(ctx, e.tenant, appinv.CreateReservationRequest{
		StockKeyRequest: e.key(), Quantity: dec(4),
	})
	require.NoError(t, err)
	require.NotNil(t, r.ExpiresAt, "configured TTL applies")

	rule, err := svc.Reorder.CreateReorderRule(ctx, e.tenant, appinv.CreateReorderRuleRequest{
		Name:                 "restock",
		ProductID:            &e.product,
		TriggerBelowQuantity: dec(5),
		ReorderUpToQuantity:  dec(20),
	})
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, rule.SuggestionValidity)
}
