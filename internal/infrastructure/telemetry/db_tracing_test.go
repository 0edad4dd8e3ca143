package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func findAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestRegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Nil(t, db.Callback().Query().Get("stock_slow:query"))
}

func TestRegisterOtelGorm_Enabled(t *testing.T) {
	db := setupTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"

	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))
	assert.NotNil(t, db.Callback().Query().Get("stock_slow:query"))
	assert.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)
}

func TestSlowQueryCallback_AnnotatesActiveSpan(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: -time.Second}, zap.NewNop())
	require.NoError(t, plugin.registerCallbacks(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "insert")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()

	v, ok := findAttr(attrs, "db.rows_affected")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.AsInt64())

	v, ok = findAttr(attrs, "db.slow_query")
	require.True(t, ok)
	assert.True(t, v.AsBool())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "slow_query_warning", spans[0].Events()[0].Name)
}

func TestSlowQueryCallback_MarksErrors(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.NewNop())
	require.NoError(t, plugin.registerCallbacks(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	err := db.WithContext(ctx).Raw("SELECT * FROM missing_table").Scan(&[]tracedRow{}).Error
	require.Error(t, err)
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	_, slow := findAttr(s.Attributes(), "db.slow_query")
	assert.False(t, slow)
}

func TestSlowQueryCallback_IgnoresRecordNotFound(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.NewNop())
	require.NoError(t, plugin.registerCallbacks(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "first")
	var row tracedRow
	assert.ErrorIs(t, db.WithContext(ctx).First(&row, 42).Error, gorm.ErrRecordNotFound)
	span.End()

	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
}
