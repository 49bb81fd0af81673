package queue

import (
	"context"
	"log/slog"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// Queue is a durable job queue keyed by job id. A job whose id is already
// known (queued, active, or a retained terminal record) is ignored.
type Queue struct {
	repo   storage.JobRepository
	notify chan struct{}
	logger *slog.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue) error

// WithQueueLogger sets a custom logger.
// Default is slog.Default().
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger.With("component", "queue")
		return nil
	}
}

// NewQueue creates a queue over the given job repository.
func NewQueue(repo storage.JobRepository, opts ...QueueOption) (*Queue, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	q := &Queue{
		repo:   repo,
		notify: make(chan struct{}, 1),
		logger: slog.Default().With("component", "queue"),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Enqueue validates and stores a job. It returns false, without side
// effects, when a job with the same id already exists.
func (q *Queue) Enqueue(ctx context.Context, job *core.Job) (bool, error) {
	if err := core.ValidateJob(job); err != nil {
		return false, err
	}
	added, err := q.repo.Enqueue(ctx, job)
	if err != nil {
		q.logger.Error("failed to enqueue job", "job", job.ID, "err", err)
		return false, err
	}
	if !added {
		q.logger.Debug("duplicate job ignored", "job", job.ID)
		return false, nil
	}
	q.logger.Debug("job enqueued", "job", job.ID, "source", job.Article.Source)
	q.wake()
	return true, nil
}

// Job returns the current record of a job.
func (q *Queue) Job(ctx context.Context, id string) (*core.Job, error) {
	return q.repo.GetJob(ctx, id)
}

// Stats returns the number of jobs per state.
func (q *Queue) Stats(ctx context.Context) (storage.JobCounts, error) {
	return q.repo.Counts(ctx)
}

// Pending reports whether any job is queued or active.
func (q *Queue) Pending(ctx context.Context) (bool, error) {
	counts, err := q.repo.Counts(ctx)
	if err != nil {
		return false, err
	}
	return counts.Queued+counts.Active > 0, nil
}

// wake signals a waiting worker without blocking.
func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
