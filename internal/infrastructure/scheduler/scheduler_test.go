package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type fakeExecutor struct {
	mu       sync.Mutex
	calls    map[JobKind]int
	err      error
	block    chan struct{}
	executed chan *Job
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		calls:    make(map[JobKind]int),
		executed: make(chan *Job, 16),
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, job *Job) (int, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls[job.Kind]++
	f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func (f *fakeExecutor) callCount(kind JobKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func startScheduler(t *testing.T, exec *fakeExecutor, cfg Config) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, exec, newTestLogger())
	s.OnJobFinished(func(j *Job) {
		select {
		case exec.executed <- j:
		default:
		}
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitJob(t *testing.T, ch <-chan *Job) *Job {
	t.Helper()
	select {
	case j := <-ch:
		return j
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
		return nil
	}
}

func TestJobKind_IsValid(t *testing.T) {
	for _, k := range AllJobKinds() {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, JobKind("order_sync").IsValid())
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobKindReservationExpiry)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Zero(t, job.Duration())

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Complete(5)
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, 5, job.Processed)
	assert.GreaterOrEqual(t, job.Duration(), time.Duration(0))

	failed := NewJob(JobKindOutboxHealth)
	failed.Start()
	failed.Fail("boom")
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	custom := Config{Workers: 4, QueueSize: 8, JobTimeout: time.Second}.withDefaults()
	assert.Equal(t, 4, custom.Workers)
	assert.Equal(t, 8, custom.QueueSize)
	assert.Equal(t, time.Second, custom.JobTimeout)
}

func TestScheduler_SubmitBeforeStart(t *testing.T) {
	s := NewScheduler(DefaultConfig(), newFakeExecutor(), nil)
	_, err := s.Submit(JobKindReservationExpiry)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_SubmitInvalidKind(t *testing.T) {
	s := startScheduler(t, newFakeExecutor(), DefaultConfig())
	_, err := s.Submit(JobKind("nope"))
	assert.ErrorIs(t, err, ErrInvalidJobKind)
}

func TestScheduler_RunsJob(t *testing.T) {
	exec := newFakeExecutor()
	s := startScheduler(t, exec, DefaultConfig())

	job, err := s.Submit(JobKindReorderEvaluation)
	require.NoError(t, err)

	done := waitJob(t, exec.executed)
	assert.Equal(t, job.ID, done.ID)
	assert.Equal(t, JobStatusSuccess, done.Status)
	assert.Equal(t, 3, done.Processed)
	assert.Equal(t, 1, exec.callCount(JobKindReorderEvaluation))
}

func TestScheduler_FailedJobIsNotRetried(t *testing.T) {
	exec := newFakeExecutor()
	exec.err = errors.New("db down")
	s := startScheduler(t, exec, DefaultConfig())

	_, err := s.Submit(JobKindSuggestionExpiry)
	require.NoError(t, err)

	done := waitJob(t, exec.executed)
	assert.Equal(t, JobStatusFailed, done.Status)
	assert.Equal(t, "db down", done.Error)

	select {
	case <-exec.executed:
		t.Fatal("failed job must not be re-run")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, exec.callCount(JobKindSuggestionExpiry))
}

func TestScheduler_DeduplicatesInFlightKind(t *testing.T) {
	exec := newFakeExecutor()
	exec.block = make(chan struct{})
	s := startScheduler(t, exec, Config{Workers: 1, QueueSize: 4, JobTimeout: time.Second})

	_, err := s.Submit(JobKindReservationExpiry)
	require.NoError(t, err)

	_, err = s.Submit(JobKindReservationExpiry)
	assert.ErrorIs(t, err, ErrJobAlreadyQueued)

	_, err = s.Submit(JobKindOutboxHealth)
	assert.NoError(t, err, "other kinds are independent")

	close(exec.block)
	waitJob(t, exec.executed)
	waitJob(t, exec.executed)

	_, err = s.Submit(JobKindReservationExpiry)
	assert.NoError(t, err, "kind can be submitted again once finished")
	waitJob(t, exec.executed)
}

func TestScheduler_QueueFull(t *testing.T) {
	exec := newFakeExecutor()
	exec.block = make(chan struct{})
	defer close(exec.block)
	s := startScheduler(t, exec, Config{Workers: 1, QueueSize: 1, JobTimeout: time.Second})

	_, err := s.Submit(JobKindReservationExpiry)
	require.NoError(t, err)

	// wait until the worker picked the first job so the queue slot is free again
	require.Eventually(t, func() bool { return len(s.jobs) == 0 }, time.Second, 5*time.Millisecond)

	_, err = s.Submit(JobKindSuggestionExpiry)
	require.NoError(t, err)

	_, err = s.Submit(JobKindOutboxHealth)
	assert.ErrorIs(t, err, ErrJobQueueFull)
}

func TestScheduler_JobTimeout(t *testing.T) {
	exec := newFakeExecutor()
	exec.block = make(chan struct{})
	defer close(exec.block)
	s := startScheduler(t, exec, Config{Workers: 1, QueueSize: 1, JobTimeout: 20 * time.Millisecond})

	_, err := s.Submit(JobKindInventorySnapshot)
	require.NoError(t, err)

	done := waitJob(t, exec.executed)
	assert.Equal(t, JobStatusFailed, done.Status)
	assert.Contains(t, done.Error, context.DeadlineExceeded.Error())
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := NewScheduler(DefaultConfig(), newFakeExecutor(), newTestLogger())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	_, err := s.Submit(JobKindOutboxHealth)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}
