package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepTrigger_SubmitsOnTick(t *testing.T) {
	exec := newFakeExecutor()
	s := startScheduler(t, exec, DefaultConfig())

	trigger := NewSweepTrigger(SweepTriggerConfig{
		Intervals: map[JobKind]time.Duration{
			JobKindReservationExpiry: 10 * time.Millisecond,
			JobKindOutboxHealth:      0,
		},
	}, s, newTestLogger())
	require.NoError(t, trigger.Start(context.Background()))
	defer func() { _ = trigger.Stop(context.Background()) }()

	require.Eventually(t, func() bool {
		return exec.callCount(JobKindReservationExpiry) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, exec.callCount(JobKindOutboxHealth), "disabled kinds never run")
}

func TestSweepTrigger_StopHaltsLoops(t *testing.T) {
	exec := newFakeExecutor()
	s := startScheduler(t, exec, DefaultConfig())

	trigger := NewSweepTrigger(SweepTriggerConfig{
		Intervals: map[JobKind]time.Duration{JobKindSuggestionExpiry: 5 * time.Millisecond},
	}, s, nil)
	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool {
		return exec.callCount(JobKindSuggestionExpiry) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))

	// drain anything already queued before sampling
	time.Sleep(30 * time.Millisecond)
	count := exec.callCount(JobKindSuggestionExpiry)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, exec.callCount(JobKindSuggestionExpiry))
}

func TestSweepTrigger_TriggerNow(t *testing.T) {
	exec := newFakeExecutor()
	s := startScheduler(t, exec, DefaultConfig())
	trigger := NewSweepTrigger(SweepTriggerConfig{}, s, newTestLogger())

	job, err := trigger.TriggerNow(JobKindOutboxHealth)
	require.NoError(t, err)
	done := waitJob(t, exec.executed)
	assert.Equal(t, job.ID, done.ID)
}
