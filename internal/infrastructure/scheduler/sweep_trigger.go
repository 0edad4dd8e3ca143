package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepTriggerConfig maps each job kind to its tick interval. Kinds with a
// zero or negative interval are not triggered.
type SweepTriggerConfig struct {
	Intervals map[JobKind]time.Duration
}

// SweepTrigger submits sweep jobs to the scheduler on per-kind tickers
type SweepTrigger struct {
	config    SweepTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepTrigger creates a new sweep trigger
func NewSweepTrigger(config SweepTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *SweepTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts one ticker loop per configured kind
func (t *SweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	started := 0
	for _, kind := range AllJobKinds() {
		interval := t.config.Intervals[kind]
		if interval <= 0 {
			continue
		}
		t.wg.Add(1)
		go t.runLoop(ctx, kind, interval)
		started++
		t.logger.Info("Sweep trigger scheduled",
			zap.String("kind", string(kind)),
			zap.Duration("interval", interval),
		)
	}

	t.logger.Info("Sweep trigger started", zap.Int("loops", started))
	return nil
}

// Stop stops all ticker loops
func (t *SweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerNow submits a job of the given kind immediately
func (t *SweepTrigger) TriggerNow(kind JobKind) (*Job, error) {
	return t.scheduler.Submit(kind)
}

func (t *SweepTrigger) runLoop(ctx context.Context, kind JobKind, interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.trigger(kind)
		}
	}
}

func (t *SweepTrigger) trigger(kind JobKind) {
	_, err := t.scheduler.Submit(kind)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobAlreadyQueued):
		// previous run still going; the next tick catches up
		t.logger.Debug("Sweep skipped, previous run in flight", zap.String("kind", string(kind)))
	default:
		t.logger.Warn("Failed to submit sweep",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
