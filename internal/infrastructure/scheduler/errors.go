package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobAlreadyQueued is returned when a job of the same kind is queued or running
	ErrJobAlreadyQueued = errors.New("job of this kind is already queued or running")

	// ErrInvalidJobKind is returned for unknown job kinds
	ErrInvalidJobKind = errors.New("invalid job kind")

	// ErrExecutorNotConfigured is returned when a job kind has no collaborator wired
	ErrExecutorNotConfigured = errors.New("no executor configured for job kind")
)
