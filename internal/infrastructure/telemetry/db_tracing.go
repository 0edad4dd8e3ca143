package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // bind variables in span statements; never in production
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing off, variables hidden, 200ms slow threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm plus a callback that annotates slow and failed
// statements on the active span.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm registers otelgorm and the slow query callbacks on db.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

type queryStartKey struct{}

// registerCallbacks stamps the start time before each statement and inspects it after,
// ahead of otelgorm ending its span.
func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	stamp := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}

	steps := []struct {
		op     string
		before func() error
		after  func() error
	}{
		{"create",
			func() error { return cb.Create().Before("gorm:create").Register("stock_timing:before_create", stamp) },
			func() error {
				return cb.Create().After("gorm:create").Before("otel:after_create").Register("stock_slow:create", p.slowQueryCallback)
			}},
		{"query",
			func() error { return cb.Query().Before("gorm:query").Register("stock_timing:before_query", stamp) },
			func() error {
				return cb.Query().After("gorm:query").Before("otel:after_query").Register("stock_slow:query", p.slowQueryCallback)
			}},
		{"update",
			func() error { return cb.Update().Before("gorm:update").Register("stock_timing:before_update", stamp) },
			func() error {
				return cb.Update().After("gorm:update").Before("otel:after_update").Register("stock_slow:update", p.slowQueryCallback)
			}},
		{"delete",
			func() error { return cb.Delete().Before("gorm:delete").Register("stock_timing:before_delete", stamp) },
			func() error {
				return cb.Delete().After("gorm:delete").Before("otel:after_delete").Register("stock_slow:delete", p.slowQueryCallback)
			}},
		{"row",
			func() error { return cb.Row().Before("gorm:row").Register("stock_timing:before_row", stamp) },
			func() error {
				return cb.Row().After("gorm:row").Before("otel:after_row").Register("stock_slow:row", p.slowQueryCallback)
			}},
		{"raw",
			func() error { return cb.Raw().Before("gorm:raw").Register("stock_timing:before_raw", stamp) },
			func() error {
				return cb.Raw().After("gorm:raw").Before("otel:after_raw").Register("stock_slow:raw", p.slowQueryCallback)
			}},
	}
	for _, s := range steps {
		if err := s.before(); err != nil {
			return err
		}
		if err := s.after(); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
