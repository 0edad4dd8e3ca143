package logger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgreSQL codes raised by concurrent writers on the same stock row or pending
// suggestion. Repositories translate them into domain conflicts.
var contentionCodes = map[string]bool{
	"23505": true, // unique_violation
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// GormLogger routes GORM's statement log into zap with the request fields from ctx.
type GormLogger struct {
	logger         *zap.Logger
	level          gormlogger.LogLevel
	slowThreshold  time.Duration
	reportNotFound bool
	logSQL         bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow. Zero
// disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.reportNotFound = !ignore }
}

// WithSQL controls whether the rendered statement, bound values included, is logged.
func WithSQL(enabled bool) GormLoggerOption {
	return func(l *GormLogger) { l.logSQL = enabled }
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
		logSQL:        true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	With(ctx, l.logger).Sugar().Logf(lvl, msg, data...)
}

// Trace logs one executed statement. Contention between writers is expected under load
// and is kept at Debug; the caller retries or reports a conflict.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	lvl, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	sql, rows := fc()
	fields := append(Fields(ctx), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows))
	if l.logSQL {
		fields = append(fields, zap.String("sql", sql))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if msg == "Slow SQL" {
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
	}
	l.logger.Log(lvl, msg, fields...)
}

func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	switch {
	case err != nil:
		if l.level < gormlogger.Error {
			return 0, "", false
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zapcore.DebugLevel, "SQL record not found", l.reportNotFound
		}
		if isContention(err) {
			return zapcore.DebugLevel, "SQL contention", true
		}
		return zapcore.ErrorLevel, "SQL Error", true
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		return zapcore.WarnLevel, "Slow SQL", true
	case l.level >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL Query", true
	}
	return 0, "", false
}

func isContention(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && contentionCodes[pgErr.Code]
}

// MapGormLogLevel maps the application log level onto GORM's. Debug and info both log
// every statement.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
