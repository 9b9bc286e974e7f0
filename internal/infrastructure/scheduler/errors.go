package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobNotFound is returned when a job record is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
