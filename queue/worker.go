package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newsdesk/core"
)

// Handler processes one job. A returned error counts as a failed attempt.
type Handler interface {
	Handle(ctx context.Context, job *core.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *core.Job) error

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job *core.Job) error {
	return f(ctx, job)
}

// Listener observes job outcomes. Callbacks run on the worker goroutine
// that processed the job and must not block.
type Listener interface {
	OnCompleted(job *core.Job)
	// OnFailed is called after every failed attempt; dead is true when
	// the retry policy is exhausted and the job will not run again.
	OnFailed(job *core.Job, err error, dead bool)
}

// ListenerFuncs implements Listener with optional callbacks.
type ListenerFuncs struct {
	Completed func(job *core.Job)
	Failed    func(job *core.Job, err error, dead bool)
}

// OnCompleted calls Completed if set.
func (l ListenerFuncs) OnCompleted(job *core.Job) {
	if l.Completed != nil {
		l.Completed(job)
	}
}

// OnFailed calls Failed if set.
func (l ListenerFuncs) OnFailed(job *core.Job, err error, dead bool) {
	if l.Failed != nil {
		l.Failed(job, err, dead)
	}
}

const (
	defaultConcurrency  = 1
	defaultThrottle     = 5 * time.Second
	defaultPollInterval = 1 * time.Second
	defaultRetention    = 24 * time.Hour
)

// Worker claims jobs from a Queue and runs them on a bounded pool.
// A slot stays occupied for the throttle interval after a successful job,
// so with the default concurrency of one, jobs run strictly one at a time
// with a pause after each success.
type Worker struct {
	queue        *Queue
	handler      Handler
	concurrency  int
	throttle     time.Duration
	pollInterval time.Duration
	retention    time.Duration
	policy       RetryPolicy
	listeners    []Listener
	logger       *slog.Logger

	mu      sync.Mutex
	pool    *ants.Pool
	slots   chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	jobs    sync.WaitGroup
	running bool
	stopped bool
}

// Option configures a Worker.
type Option func(*Worker) error

// WithConcurrency sets how many jobs may run at once.
// Default is 1.
func WithConcurrency(n int) Option {
	return func(w *Worker) error {
		if n < 1 {
			n = 1
		}
		w.concurrency = n
		return nil
	}
}

// WithThrottle sets the pause after each successful job.
// Default is 5 seconds.
func WithThrottle(d time.Duration) Option {
	return func(w *Worker) error {
		if d < 0 {
			d = 0
		}
		w.throttle = d
		return nil
	}
}

// WithPollInterval sets the longest time the worker sleeps between queue checks.
// Default is 1 second.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) error {
		if d <= 0 {
			d = defaultPollInterval
		}
		w.pollInterval = d
		return nil
	}
}

// WithRetention sets how long terminal job records are kept.
// While kept they block re-submission of the same id. Default is 24 hours.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) error {
		w.retention = d
		return nil
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(w *Worker) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		w.policy = policy
		return nil
	}
}

// WithListener registers a job outcome listener.
func WithListener(l Listener) Option {
	return func(w *Worker) error {
		if l != nil {
			w.listeners = append(w.listeners, l)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger.With("component", "worker")
		return nil
	}
}

// NewWorker creates a worker for the queue.
func NewWorker(queue *Queue, handler Handler, opts ...Option) (*Worker, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	w := &Worker{
		queue:        queue,
		handler:      handler,
		concurrency:  defaultConcurrency,
		throttle:     defaultThrottle,
		pollInterval: defaultPollInterval,
		retention:    defaultRetention,
		policy:       DefaultRetryPolicy(),
		logger:       slog.Default().With("component", "worker"),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Start requeues jobs left active by a previous run and begins processing.
// Processing stops when ctx is cancelled or Shutdown is called.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	if w.running {
		return ErrWorkerRunning
	}

	requeued, err := w.queue.repo.RequeueActive(ctx, time.Now())
	if err != nil {
		return err
	}
	if requeued > 0 {
		w.logger.Info("requeued interrupted jobs", "count", requeued)
	}

	pool, err := ants.NewPool(w.concurrency, ants.WithPanicHandler(func(p any) {
		w.logger.Error("worker pool task panicked", "panic", p)
	}))
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.pool = pool
	w.slots = make(chan struct{}, w.concurrency)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(runCtx)
	w.logger.Info("worker started", "concurrency", w.concurrency, "throttle", w.throttle, "max_attempts", w.policy.MaxAttempts)
	return nil
}

// Shutdown stops claiming jobs and waits for running jobs to finish or
// for ctx to end. Jobs interrupted by shutdown are requeued.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.stopped = true
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.stopped = true
	cancel, done, pool := w.cancel, w.done, w.pool
	w.mu.Unlock()

	cancel()

	finished := make(chan struct{})
	go func() {
		<-done
		w.jobs.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = ctx.Err()
	}
	pool.Release()
	w.logger.Info("worker stopped")
	return err
}

// run is the claim loop.
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		// Wait for a free slot
		select {
		case w.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}

		job, err := w.queue.repo.Claim(ctx, time.Now())
		if err != nil {
			<-w.slots
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to claim job", "err", err)
			w.sleep(ctx, w.pollInterval)
			continue
		}
		if job == nil {
			<-w.slots
			w.waitForWork(ctx)
			continue
		}

		w.jobs.Add(1)
		submitErr := w.pool.Submit(func() {
			defer w.jobs.Done()
			defer func() { <-w.slots }()
			w.process(ctx, job)
		})
		if submitErr != nil {
			w.jobs.Done()
			<-w.slots
			w.logger.Error("failed to submit job", "job", job.ID, "err", submitErr)
			w.release(job, "worker pool unavailable")
			return
		}
	}
}

// waitForWork sleeps until the next queued job is due, the queue signals
// a new job, the poll interval passes, or ctx ends.
func (w *Worker) waitForWork(ctx context.Context) {
	wait := w.pollInterval
	next, ok, err := w.queue.repo.NextReadyAt(ctx)
	if err != nil {
		w.logger.Error("failed to read queue head", "err", err)
	} else if ok {
		if until := time.Until(next); until < wait {
			wait = max(until, 0)
		}
	}
	if wait == 0 {
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.queue.notify:
	case <-timer.C:
	}
}

// process runs the handler for one claimed job and records the outcome.
func (w *Worker) process(ctx context.Context, job *core.Job) {
	logger := w.logger.With("job", job.ID, "source", job.Article.Source, "attempt", job.Attempts)
	logger.Info("job started")
	start := time.Now()

	err := w.runHandler(ctx, job)
	// Bookkeeping must survive shutdown
	bookCtx := context.WithoutCancel(ctx)

	if err == nil {
		if cerr := w.queue.repo.Complete(bookCtx, job.ID, w.retention); cerr != nil {
			logger.Error("failed to mark job completed", "err", cerr)
		}
		logger.Info("job completed", "duration", time.Since(start))
		for _, l := range w.listeners {
			l.OnCompleted(job)
		}
		w.sleep(ctx, w.throttle)
		return
	}

	if ctx.Err() != nil {
		logger.Info("job interrupted by shutdown", "err", err)
		w.release(job, "interrupted: "+err.Error())
		return
	}

	if w.policy.Exhausted(job.Attempts) {
		if berr := w.queue.repo.Bury(bookCtx, job.ID, err.Error(), w.retention); berr != nil {
			logger.Error("failed to mark job dead", "err", berr)
		}
		logger.Error("job dead", "err", err, "max_attempts", w.policy.MaxAttempts)
		for _, l := range w.listeners {
			l.OnFailed(job, err, true)
		}
		return
	}

	delay := w.policy.Backoff(job.Attempts)
	if rerr := w.queue.repo.Retry(bookCtx, job.ID, err.Error(), time.Now().Add(delay)); rerr != nil {
		logger.Error("failed to requeue job", "err", rerr)
	}
	logger.Warn("job failed", "err", err, "retry_in", delay)
	for _, l := range w.listeners {
		l.OnFailed(job, err, false)
	}
	w.queue.wake()
}

// runHandler calls the handler and converts a panic into an error.
func (w *Worker) runHandler(ctx context.Context, job *core.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return w.handler.Handle(ctx, job)
}

// release puts a claimed job back in the queue for immediate redelivery.
func (w *Worker) release(job *core.Job, reason string) {
	if err := w.queue.repo.Retry(context.Background(), job.ID, reason, time.Now()); err != nil {
		w.logger.Error("failed to release job", "job", job.ID, "err", err)
	}
}

// sleep waits for d or until ctx ends.
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
