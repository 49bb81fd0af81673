package queue

import "errors"

var (
	// ErrRepositoryRequired is returned when a job repository is not provided.
	ErrRepositoryRequired = errors.New("job repository required")

	// ErrQueueRequired is returned when a worker is created without a queue.
	ErrQueueRequired = errors.New("queue required")

	// ErrHandlerRequired is returned when a worker is created without a handler.
	ErrHandlerRequired = errors.New("job handler required")

	// ErrInvalidPolicy is returned for retry policies that cannot terminate.
	ErrInvalidPolicy = errors.New("invalid retry policy")

	// ErrWorkerRunning is returned when Start is called on a running worker.
	ErrWorkerRunning = errors.New("worker already running")

	// ErrWorkerStopped is returned when Start is called after Shutdown.
	ErrWorkerStopped = errors.New("worker stopped")
)
