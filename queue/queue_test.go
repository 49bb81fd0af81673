package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	q, err := NewQueue(stores.Jobs)
	require.NoError(t, err)
	return q
}

func articleJob(id string) *core.Job {
	return core.NewJob(core.Article{
		ID:      id,
		Title:   "Title " + id,
		Snippet: "Snippet " + id,
		URL:     "https://example.com/" + id,
		Source:  "wired business",
	})
}

func TestNewQueue_RequiresRepository(t *testing.T) {
	_, err := NewQueue(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestQueue_EnqueueDeduplicates(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	added, err := q.Enqueue(ctx, articleJob("a"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = q.Enqueue(ctx, articleJob("a"))
	require.NoError(t, err)
	assert.False(t, added)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Queued)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestQueue_RejectsMalformedJobs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := articleJob("a")
	job.Article.URL = "not-a-url"
	_, err := q.Enqueue(ctx, job)
	assert.True(t, errors.Is(err, core.ErrInvalidJob))

	job = articleJob("b")
	job.ID = "other"
	_, err = q.Enqueue(ctx, job)
	assert.True(t, errors.Is(err, core.ErrInvalidJob))

	_, err = q.Enqueue(ctx, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidJob))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Queued)
}

func TestQueue_EnqueueWakesWorker(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Enqueue(context.Background(), articleJob("a"))
	require.NoError(t, err)

	select {
	case <-q.notify:
	default:
		t.Fatal("expected a wake-up signal")
	}
}
