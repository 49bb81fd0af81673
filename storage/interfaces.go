package storage

import (
	"context"
	"time"

	"github.com/poiesic/newsdesk/core"
)

// MarkerRepository records which (source, article id) pairs finished ingestion.
// A marker is written once, after the article's chunks reached the vector store,
// and is never updated.
type MarkerRepository interface {
	// IsProcessed reports whether the article has been fully indexed.
	IsProcessed(ctx context.Context, source, articleID string) (bool, error)

	// MarkProcessed records the article as fully indexed.
	// Marking an already-marked article is a no-op.
	MarkProcessed(ctx context.Context, source, articleID string) error
}

// JobCounts summarises the queue by job state.
type JobCounts struct {
	Queued    int
	Active    int
	Completed int
	Dead      int
}

// JobRepository is the durable backing store of the job queue.
// Implementations must be safe for concurrent use.
type JobRepository interface {
	// Enqueue stores a new queued job keyed by its ID.
	// Returns false without side effects when a record with the same ID
	// already exists in any state (including terminal records that have
	// not expired yet).
	Enqueue(ctx context.Context, job *core.Job) (bool, error)

	// Claim atomically moves the earliest ready job (NotBefore <= now) to
	// the active state, increments its attempt counter and returns it.
	// Returns nil, nil when no job is ready.
	Claim(ctx context.Context, now time.Time) (*core.Job, error)

	// NextReadyAt returns the NotBefore time of the earliest queued job.
	// The boolean is false when the queue is empty.
	NextReadyAt(ctx context.Context) (time.Time, bool, error)

	// Complete marks an active job completed. The record is retained
	// for the given duration before it expires.
	Complete(ctx context.Context, id string, retention time.Duration) error

	// Retry records a failed attempt and requeues the job at retryAt.
	Retry(ctx context.Context, id string, reason string, retryAt time.Time) error

	// Bury records a failed attempt and moves the job to the dead state.
	// The record is retained for the given duration before it expires.
	Bury(ctx context.Context, id string, reason string, retention time.Duration) error

	// RequeueActive moves every active job back to queued. It is used on
	// startup to redeliver jobs interrupted by a crash.
	RequeueActive(ctx context.Context, now time.Time) (int, error)

	// GetJob retrieves a job record by ID.
	// Returns ErrNotFound if the record doesn't exist or has expired.
	GetJob(ctx context.Context, id string) (*core.Job, error)

	// Counts returns the number of jobs per state.
	Counts(ctx context.Context) (JobCounts, error)
}

// SessionRepository persists append-only chat histories keyed by session id.
type SessionRepository interface {
	// GetTurns returns the turns of a session in chronological order.
	// An unknown session yields an empty slice and no error.
	GetTurns(ctx context.Context, sessionID string) ([]core.Turn, error)

	// AppendTurns atomically appends turns to a session, creating it if needed,
	// and refreshes the session's expiry.
	AppendTurns(ctx context.Context, sessionID string, turns ...core.Turn) error

	// DeleteSession removes a session's history.
	// Deleting an unknown session is a no-op.
	DeleteSession(ctx context.Context, sessionID string) error
}

// ChunkRepository is a local vector index over article chunks.
type ChunkRepository interface {
	// AddChunks stores chunks with their embeddings in a single transaction.
	// Chunks are keyed by core.Chunk.Key, so rewriting an article replaces
	// its previous windows.
	AddChunks(ctx context.Context, chunks ...*StoredChunk) error

	// FindSimilar returns up to limit chunks ordered by similarity to vector
	// (highest first).
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.SearchResult, error)
}
