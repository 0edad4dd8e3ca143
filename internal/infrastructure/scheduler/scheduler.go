package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind identifies a background sweep
type JobKind string

const (
	JobKindReservationExpiry JobKind = "reservation_expiry"
	JobKindSuggestionExpiry  JobKind = "suggestion_expiry"
	JobKindReorderEvaluation JobKind = "reorder_evaluation"
	JobKindOutboxHealth      JobKind = "outbox_health"
	JobKindInventorySnapshot JobKind = "inventory_snapshot"
)

// AllJobKinds returns every sweep the scheduler knows how to run
func AllJobKinds() []JobKind {
	return []JobKind{
		JobKindReservationExpiry,
		JobKindSuggestionExpiry,
		JobKindReorderEvaluation,
		JobKindOutboxHealth,
		JobKindInventorySnapshot,
	}
}

// IsValid reports whether k is a known job kind
func (k JobKind) IsValid() bool {
	for _, kind := range AllJobKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Job is one run of a sweep. Sweeps are idempotent, so a failed job is not
// retried; the next tick runs the same kind again.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Status      JobStatus
	Error       string
	Processed   int
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a new pending job
func NewJob(kind JobKind) *Job {
	return &Job{
		ID:     uuid.New(),
		Kind:   kind,
		Status: JobStatusPending,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(processed int) {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.Processed = processed
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Duration returns how long the job ran, or zero if it has not finished
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// JobExecutor runs a job and returns how many items it handled
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) (int, error)
}

// Config holds scheduler configuration
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		QueueSize:  16,
		JobTimeout: 5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	return c
}

// Scheduler runs sweep jobs on a fixed worker pool. At most one job of each
// kind is queued or running at a time.
type Scheduler struct {
	config   Config
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  map[JobKind]bool
	observer  func(*Job)
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, config.QueueSize),
		inFlight: make(map[JobKind]bool),
	}
}

// OnJobFinished registers a callback invoked after every job, successful or not.
// It must be set before Start.
func (s *Scheduler) OnJobFinished(fn func(*Job)) {
	s.observer = fn
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sweep scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler accepts jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Submit queues a job of the given kind
func (s *Scheduler) Submit(kind JobKind) (*Job, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidJobKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil, ErrSchedulerNotRunning
	}
	if s.inFlight[kind] {
		return nil, ErrJobAlreadyQueued
	}

	job := NewJob(kind)
	select {
	case s.jobs <- job:
		s.inFlight[kind] = true
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(kind)),
		)
		return job, nil
	default:
		return nil, ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	defer s.finish(job)

	job.Start()
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	processed, err := s.executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
		return
	}

	job.Complete(processed)
	s.logger.Debug("Job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.Int("processed", processed),
		zap.Duration("duration", job.Duration()),
	)
}

func (s *Scheduler) finish(job *Job) {
	s.mu.Lock()
	delete(s.inFlight, job.Kind)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(job)
	}
}
