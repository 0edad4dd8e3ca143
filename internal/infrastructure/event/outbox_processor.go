package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor moves committed stock events from the outbox table onto the event
// bus. Delivery is at least once: an entry is marked SENT only after every subscriber
// returned, so consumers guard themselves with IdempotentHandler.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	def := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the delivery loop and, if enabled, the retention loop.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.every(ctx, p.config.PollInterval, func(ctx context.Context) {
		// keep draining while batches come back full
		for ctx.Err() == nil && p.ProcessOnce(ctx) == p.config.BatchSize {
		}
	})
	if p.config.CleanupEnabled {
		p.every(ctx, p.config.CleanupInterval, p.Cleanup)
	}

	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("cleanup", p.config.CleanupEnabled),
	)
	return nil
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// Stop cancels the loops and waits for an in-flight batch, bounded by ctx.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessOnce claims one batch and delivers it. It returns the number of entries claimed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	entries, err := p.repo.ClaimBatch(ctx, p.now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to claim outbox entries", zap.Error(err))
		return 0
	}
	for _, entry := range entries {
		p.deliver(ctx, entry)
	}
	return len(entries)
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	ctx, span := telemetry.StartSpan(ctx, "outbox.deliver", telemetry.WithOutboxEntry(entry))
	defer span.End()

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	switch {
	case errors.Is(err, ErrUnknownEventType):
		// no retry will teach this build a new event type
		telemetry.RecordError(span, err)
		entry.MarkDead(p.now(), err.Error())
	case err != nil:
		telemetry.RecordError(span, err)
		entry.MarkFailed(p.now(), err.Error())
	default:
		if err = p.bus.Publish(ctx, event); err != nil {
			telemetry.RecordError(span, err)
			entry.MarkFailed(p.now(), err.Error())
		} else {
			telemetry.SetOK(span)
			entry.MarkSent(p.now())
		}
	}

	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID.String()),
	}
	switch entry.Status {
	case shared.OutboxStatusDead:
		p.logger.Warn("Event dead-lettered", append(fields,
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("attempts", entry.RetryCount),
			zap.String("reason", entry.LastError))...)
	case shared.OutboxStatusFailed:
		p.logger.Error("Event delivery failed", append(fields,
			zap.Int("attempts", entry.RetryCount),
			zap.Timep("next_retry_at", entry.NextRetryAt),
			zap.String("reason", entry.LastError))...)
	default:
		p.logger.Debug("Event delivered", fields...)
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		// the claim times out and the entry is delivered again
		p.logger.Error("Failed to record delivery state", append(fields, zap.Error(err))...)
	}
}

// RetryDead gives a dead-lettered entry a fresh retry budget.
func (p *OutboxProcessor) RetryDead(ctx context.Context, id uuid.UUID) error {
	entry, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.ResetForRetry(p.now()); err != nil {
		return err
	}
	return p.repo.Update(ctx, entry)
}

// Cleanup deletes sent entries older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context) {
	cutoff := p.now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("Outbox cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("Outbox cleaned up", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
