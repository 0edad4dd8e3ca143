package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{"query at info", gormlogger.Info, time.Now(), nil, "SQL Query", zapcore.DebugLevel},
		{"slow query", gormlogger.Warn, time.Now().Add(-time.Second), nil, "Slow SQL", zapcore.WarnLevel},
		{"error", gormlogger.Error, time.Now(), errors.New("connection reset"), "SQL Error", zapcore.ErrorLevel},
		{"unique violation", gormlogger.Error, time.Now(), gorm.ErrDuplicatedKey, "SQL contention", zapcore.DebugLevel},
		{"serialization failure", gormlogger.Error, time.Now(), &pgconn.PgError{Code: "40001"}, "SQL contention", zapcore.DebugLevel},
		{"check violation", gormlogger.Error, time.Now(), &pgconn.PgError{Code: "23514"}, "SQL Error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, WithSlowThreshold(100*time.Millisecond))

			gl.Trace(context.Background(), tt.begin, sqlFn("SELECT 1", 1), tt.err)

			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
		})
	}
}

func TestGormLogger_TraceSkips(t *testing.T) {
	t.Run("record not found", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gorm.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("record not found reported when asked", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info, WithIgnoreRecordNotFoundError(false))

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gorm.ErrRecordNotFound)
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("silent", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), errors.New("x"))
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("sql omitted when disabled", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSQL(false))

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT secret", 1), nil)
		require.Equal(t, 1, recorded.Len())
		_, ok := recorded.All()[0].ContextMap()["sql"]
		assert.False(t, ok)
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Warn, changed.level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
