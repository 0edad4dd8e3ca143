package scheduler

import (
	"context"
	"fmt"
	"time"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ExpirySweeper expires due items across tenants
type ExpirySweeper interface {
	ExpireDue(ctx context.Context, limit int) (*appinv.ExpirySweepResult, error)
}

// RuleSweeper evaluates scheduled reorder rules that are due
type RuleSweeper interface {
	EvaluateDue(ctx context.Context, limit int) (*appinv.RuleSweepResult, error)
}

// OutboxCounter reports outbox entries grouped by status
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// SweepExecutor dispatches each job kind to the service that implements it
type SweepExecutor struct {
	reservations ExpirySweeper
	suggestions  ExpirySweeper
	rules        RuleSweeper
	outbox       OutboxCounter
	metrics      *telemetry.InventoryMetrics
	batchSize    int
	logger       *zap.Logger
}

// SweepExecutorOption configures a SweepExecutor
type SweepExecutorOption func(*SweepExecutor)

// WithReservationSweeper wires the reservation expiry sweep
func WithReservationSweeper(s ExpirySweeper) SweepExecutorOption {
	return func(e *SweepExecutor) { e.reservations = s }
}

// WithSuggestionSweeper wires the suggestion expiry sweep
func WithSuggestionSweeper(s ExpirySweeper) SweepExecutorOption {
	return func(e *SweepExecutor) { e.suggestions = s }
}

// WithRuleSweeper wires the due reorder rule evaluation
func WithRuleSweeper(s RuleSweeper) SweepExecutorOption {
	return func(e *SweepExecutor) { e.rules = s }
}

// WithOutboxCounter wires the outbox health check
func WithOutboxCounter(c OutboxCounter) SweepExecutorOption {
	return func(e *SweepExecutor) { e.outbox = c }
}

// WithMetrics records sweep durations and gauges
func WithMetrics(m *telemetry.InventoryMetrics) SweepExecutorOption {
	return func(e *SweepExecutor) { e.metrics = m }
}

// WithBatchSize bounds how many items a single sweep loads
func WithBatchSize(n int) SweepExecutorOption {
	return func(e *SweepExecutor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewSweepExecutor creates a new sweep executor
func NewSweepExecutor(logger *zap.Logger, opts ...SweepExecutorOption) *SweepExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &SweepExecutor{
		batchSize: appinv.DefaultSweepBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the sweep for job.Kind inside a span and records its outcome
func (e *SweepExecutor) Execute(ctx context.Context, job *Job) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sweep", string(job.Kind),
		telemetry.WithAttribute(telemetry.SpanAttrJob, string(job.Kind)),
		telemetry.WithAttribute(telemetry.SpanAttrBatchSize, e.batchSize),
	)
	defer span.End()

	start := time.Now()
	processed, err := e.run(ctx, job.Kind)
	if e.metrics != nil {
		e.metrics.RecordSweep(ctx, string(job.Kind), time.Since(start), processed, err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrProcessed, processed)
	if err != nil {
		telemetry.RecordError(span, err)
		return processed, err
	}
	telemetry.SetOK(span)
	return processed, nil
}

func (e *SweepExecutor) run(ctx context.Context, kind JobKind) (int, error) {
	switch kind {
	case JobKindReservationExpiry:
		return e.expire(ctx, kind, e.reservations)
	case JobKindSuggestionExpiry:
		return e.expire(ctx, kind, e.suggestions)
	case JobKindReorderEvaluation:
		return e.evaluateRules(ctx)
	case JobKindOutboxHealth:
		return e.checkOutbox(ctx)
	case JobKindInventorySnapshot:
		return e.snapshot(ctx)
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidJobKind, kind)
	}
}

func (e *SweepExecutor) expire(ctx context.Context, kind JobKind, sweeper ExpirySweeper) (int, error) {
	if sweeper == nil {
		return 0, fmt.Errorf("%w: %s", ErrExecutorNotConfigured, kind)
	}
	result, err := sweeper.ExpireDue(ctx, e.batchSize)
	if err != nil {
		return 0, err
	}
	if result.Expired > 0 || result.Failed > 0 {
		e.logger.Info("Expiry sweep finished",
			zap.String("kind", string(kind)),
			zap.Int("processed", result.Processed),
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed),
		)
	}
	return result.Processed, nil
}

func (e *SweepExecutor) evaluateRules(ctx context.Context) (int, error) {
	if e.rules == nil {
		return 0, fmt.Errorf("%w: %s", ErrExecutorNotConfigured, JobKindReorderEvaluation)
	}
	result, err := e.rules.EvaluateDue(ctx, e.batchSize)
	if err != nil {
		return 0, err
	}
	if result.Suggestions > 0 || result.Failed > 0 {
		e.logger.Info("Reorder rule sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("suggestions", result.Suggestions),
			zap.Int("failed", result.Failed),
		)
	}
	return result.Processed, nil
}

func (e *SweepExecutor) checkOutbox(ctx context.Context) (int, error) {
	if e.outbox == nil {
		return 0, fmt.Errorf("%w: %s", ErrExecutorNotConfigured, JobKindOutboxHealth)
	}
	counts, err := e.outbox.CountByStatus(ctx)
	if err != nil {
		return 0, fmt.Errorf("count outbox entries: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordOutbox(ctx, counts)
	}
	if dead := counts[shared.OutboxStatusDead]; dead > 0 {
		e.logger.Warn("Outbox has dead-lettered events",
			zap.Int64("dead", dead),
			zap.Int64("failed", counts[shared.OutboxStatusFailed]),
		)
	}
	return 0, nil
}

func (e *SweepExecutor) snapshot(ctx context.Context) (int, error) {
	if e.metrics == nil {
		return 0, nil
	}
	if err := e.metrics.Snapshot(ctx); err != nil {
		return 0, fmt.Errorf("inventory snapshot: %w", err)
	}
	return 0, nil
}

var _ JobExecutor = (*SweepExecutor)(nil)
