package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/cache"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/event"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/messaging"
	"github.com/erp/stockcore/internal/infrastructure/migration"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/infrastructure/scheduler"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments set STOCKCORE_* directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}

	pipeline, err := telemetry.Start(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to start telemetry", zap.Error(err))
	}
	if pipeline.Enabled() {
		// tee zap into the collector once the log exporter is up
		log, err = logger.New(logCfg, pipeline.ZapCore(cfg.App.Name, zapcore.InfoLevel))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.Database.AutoMigrate {
		if err := migrateUp(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	tracingCfg := telemetry.DefaultDBTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		tracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(tracingCfg, log)),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Events: aggregates write to the outbox in their own transaction, the processor
	// relays committed entries to the in-process bus.
	serializer := event.NewStockEventSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB,
		persistence.WithOutbox(outboxPublisher),
		persistence.WithScopeLogger(log),
	)

	// The command services are the library surface for an embedding process; this binary
	// drives the sweeps, the reorder trigger and the relay on top of them. No catalog is
	// wired here, so category and supplier scoped rules fail Validation.
	services := inventoryapp.NewServices(txScope, inventoryapp.ServicesConfig{
		ReservationTTL:     cfg.Inventory.ReservationTTL,
		SuggestionValidity: cfg.Inventory.DefaultSuggestionValidity,
	}, log)
	log.Info("Stock services ready",
		zap.Duration("reservation_ttl", cfg.Inventory.ReservationTTL),
		zap.Duration("suggestion_validity", cfg.Inventory.DefaultSuggestionValidity),
	)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	idempotencyCfg := shared.DefaultIdempotencyConfig()
	if cfg.Event.IdempotencyTTL > 0 {
		idempotencyCfg.TTL = cfg.Event.IdempotencyTTL
	}

	inventoryMetrics, err := telemetry.NewInventoryMetrics(
		pipeline.Meter(cfg.App.Name),
		telemetry.NewGormInventoryMetricsProvider(db.DB),
		log,
	)
	if err != nil {
		log.Fatal("Failed to create inventory metrics", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(telemetry.NewMetricsEventHandler(inventoryMetrics))

	if cfg.Inventory.ReorderTriggerEnabled {
		eventBus.Subscribe(event.NewIdempotentHandler(
			inventoryapp.NewReorderTriggerHandler(services.Reorder, log),
			idempotencyStore, log,
			event.WithHandlerName("reorder_trigger"),
			event.WithIdempotencyConfig(idempotencyCfg),
			event.WithDeliveryRecorder(inventoryMetrics),
		))
	}

	var relay *messaging.NATSRelay
	if cfg.NATS.Enabled {
		relay, err = messaging.Connect(ctx, messaging.RelayConfig{
			URL:             cfg.NATS.URL,
			Stream:          cfg.NATS.Stream,
			SubjectPrefix:   cfg.NATS.SubjectPrefix,
			PublishWait:     cfg.NATS.PublishWait,
			DuplicateWindow: cfg.NATS.DuplicateWin,
		}, serializer, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		eventBus.Subscribe(event.NewIdempotentHandler(
			relay, idempotencyStore, log,
			event.WithHandlerName("nats_relay"),
			event.WithIdempotencyConfig(idempotencyCfg),
			event.WithDeliveryRecorder(inventoryMetrics),
		))
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	var (
		sweepScheduler *scheduler.Scheduler
		sweepTrigger   *scheduler.SweepTrigger
	)
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewSweepExecutor(log,
			scheduler.WithReservationSweeper(services.ReservationExpiry),
			scheduler.WithSuggestionSweeper(services.SuggestionExpiry),
			scheduler.WithRuleSweeper(services.Reorder),
			scheduler.WithOutboxCounter(outboxRepo),
			scheduler.WithMetrics(inventoryMetrics),
			scheduler.WithBatchSize(cfg.Inventory.SweepBatchSize),
		)
		sweepScheduler = scheduler.NewScheduler(scheduler.Config{
			Workers:    cfg.Scheduler.Workers,
			QueueSize:  cfg.Scheduler.QueueSize,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, executor, log)
		if err := sweepScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep scheduler", zap.Error(err))
		}

		intervals := map[scheduler.JobKind]time.Duration{
			scheduler.JobKindReservationExpiry: cfg.Inventory.ReservationSweepInterval,
			scheduler.JobKindSuggestionExpiry:  cfg.Inventory.SuggestionSweepInterval,
			scheduler.JobKindReorderEvaluation: cfg.Inventory.ReorderEvaluationInterval,
			scheduler.JobKindOutboxHealth:      cfg.Scheduler.OutboxCheckInterval,
		}
		if pipeline.Enabled() {
			intervals[scheduler.JobKindInventorySnapshot] = cfg.Telemetry.MetricsInterval
		}
		sweepTrigger = scheduler.NewSweepTrigger(scheduler.SweepTriggerConfig{Intervals: intervals}, sweepScheduler, log)
		if err := sweepTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep trigger", zap.Error(err))
		}
		log.Info("Sweep scheduler started",
			zap.Int("workers", cfg.Scheduler.Workers),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	checks := []dependencyCheck{{name: "database", check: db.Ping}}
	if p, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, dependencyCheck{name: "redis", check: p.Ping})
	}
	if relay != nil {
		checks = append(checks, dependencyCheck{name: "nats", check: func(context.Context) error {
			return relay.Ping()
		}})
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           newProbeEngine(cfg.App.Name, log, checks),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Probe server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start probe server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Probe server forced to shutdown", zap.Error(err))
	}
	// producers stop before the consumers they feed
	if sweepTrigger != nil {
		logStop(log, "sweep trigger", sweepTrigger.Stop(shutdownCtx))
	}
	if sweepScheduler != nil {
		logStop(log, "sweep scheduler", sweepScheduler.Stop(shutdownCtx))
	}
	if outboxProcessor != nil {
		logStop(log, "outbox processor", outboxProcessor.Stop(shutdownCtx))
	}
	logStop(log, "event bus", eventBus.Stop(shutdownCtx))
	if relay != nil {
		logStop(log, "nats relay", relay.Close())
	}
	logStop(log, "idempotency store", idempotencyStore.Close())
	logStop(log, "database", db.Close())
	logStop(log, "telemetry", pipeline.Shutdown(shutdownCtx))

	log.Info("Stock engine exited gracefully")
}

// migrateUp applies the embedded migrations over a dedicated connection; closing the
// migrator closes that connection.
func migrateUp(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}

func logStop(log *zap.Logger, component string, err error) {
	if err != nil {
		log.Error("Error stopping "+component, zap.Error(err))
	}
}
