package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newProviderDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.StockModel{}, &models.ReorderSuggestionModel{}))
	return db
}

func stockRow(tenantID, warehouseID uuid.UUID, reserved string) *models.StockModel {
	now := time.Now()
	m := &models.StockModel{
		ProductID:        uuid.New(),
		WarehouseID:      warehouseID,
		Quantity:         decimal.RequireFromString("100"),
		ReservedQuantity: decimal.RequireFromString(reserved),
	}
	m.ID = uuid.New()
	m.TenantID = tenantID
	m.Version = 1
	m.CreatedAt, m.UpdatedAt = now, now
	return m
}

func suggestionRow(tenantID uuid.UUID, status string) *models.ReorderSuggestionModel {
	now := time.Now()
	m := &models.ReorderSuggestionModel{
		ProductID:         uuid.New(),
		SuggestedQuantity: decimal.NewFromInt(5),
		Status:            status,
		ExpiresAt:         now.Add(time.Hour),
	}
	m.ID = uuid.New()
	m.TenantID = tenantID
	m.Version = 1
	m.CreatedAt, m.UpdatedAt = now, now
	return m
}

func TestGormInventoryMetricsProvider_ReservedByWarehouse(t *testing.T) {
	db := newProviderDB(t)
	tenantID, wh1, wh2 := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, db.Create([]*models.StockModel{
		stockRow(tenantID, wh1, "3"),
		stockRow(tenantID, wh1, "4.5"),
		stockRow(tenantID, wh2, "0"),
	}).Error)

	got, err := telemetry.NewGormInventoryMetricsProvider(db).ReservedByWarehouse(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tenantID, got[0].TenantID)
	assert.Equal(t, wh1, got[0].WarehouseID)
	assert.True(t, got[0].Quantity.Equal(decimal.RequireFromString("7.5")), got[0].Quantity.String())
}

func TestGormInventoryMetricsProvider_PendingSuggestions(t *testing.T) {
	db := newProviderDB(t)
	t1, t2 := uuid.New(), uuid.New()

	require.NoError(t, db.Create([]*models.ReorderSuggestionModel{
		suggestionRow(t1, "PENDING"),
		suggestionRow(t1, "PENDING"),
		suggestionRow(t1, "EXPIRED"),
		suggestionRow(t2, "APPROVED"),
	}).Error)

	got, err := telemetry.NewGormInventoryMetricsProvider(db).PendingSuggestions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, t1, got[0].TenantID)
	assert.Equal(t, int64(2), got[0].Count)
}
