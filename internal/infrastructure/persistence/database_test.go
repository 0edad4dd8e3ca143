package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDatabase(t *testing.T, opts ...DatabaseOption) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	cfg := &config.DatabaseConfig{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 30,
		ConnMaxIdleTime: 5,
	}
	opts = append(opts, WithDialector(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})))

	db, err := NewDatabase(cfg, opts...)
	require.NoError(t, err)
	return db, mock
}

func TestNewDatabase_AppliesPoolSettings(t *testing.T) {
	db, _ := newMockDatabase(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpenConnections)
	assert.True(t, db.DB.Config.TranslateError)
	assert.True(t, db.DB.Config.SkipDefaultTransaction)
}

func TestNewDatabase_WithTracing(t *testing.T) {
	cfg := telemetry.DefaultDBTracingConfig()
	cfg.Enabled = true

	db, _ := newMockDatabase(t, WithTracing(telemetry.NewDBTracingPlugin(cfg, zap.NewNop())))
	require.NotNil(t, db.DB)
}

func TestDatabase_Ping(t *testing.T) {
	db, _ := newMockDatabase(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t)
	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionStats_Saturated(t *testing.T) {
	tests := []struct {
		name  string
		stats ConnectionStats
		want  bool
	}{
		{"idle pool", ConnectionStats{MaxOpenConnections: 10, InUse: 2}, false},
		{"all busy without waiters", ConnectionStats{MaxOpenConnections: 10, InUse: 10}, false},
		{"all busy with waiters", ConnectionStats{MaxOpenConnections: 10, InUse: 10, WaitCount: 3, WaitDuration: time.Second}, true},
		{"unlimited pool", ConnectionStats{InUse: 50, WaitCount: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.Saturated())
		})
	}
}
