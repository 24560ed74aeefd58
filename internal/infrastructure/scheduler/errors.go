package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning rejects submissions before Start or after Stop
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull means every worker is busy and the buffer is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobKind means no task is registered for the job kind
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidConfig wraps malformed run times and limits
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
