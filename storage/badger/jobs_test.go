package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(id string) *core.Job {
	return core.NewJob(core.Article{
		ID:      id,
		Title:   "Title " + id,
		Snippet: "Snippet " + id,
		URL:     "https://example.com/" + id,
		Source:  "nbc tech",
	})
}

func TestJobRepository_EnqueueIsIdempotent(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	added, err := stores.Jobs.Enqueue(ctx, testJob("a"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = stores.Jobs.Enqueue(ctx, testJob("a"))
	require.NoError(t, err)
	assert.False(t, added, "duplicate id must be ignored")

	counts, err := stores.Jobs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.JobCounts{Queued: 1}, counts)
}

func TestJobRepository_ConcurrentEnqueueSameID(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	addedCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := stores.Jobs.Enqueue(ctx, testJob("same"))
			assert.NoError(t, err)
			if added {
				mu.Lock()
				addedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, addedCount)
	counts, err := stores.Jobs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Queued)
}

func TestJobRepository_ClaimFIFO(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := stores.Jobs.Enqueue(ctx, testJob(fmt.Sprintf("job-%d", i)))
		require.NoError(t, err)
	}

	now := time.Now().Add(time.Second)
	for i := 0; i < 3; i++ {
		job, err := stores.Jobs.Claim(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, fmt.Sprintf("job-%d", i), job.ID)
		assert.Equal(t, core.JobStateActive, job.State)
		assert.Equal(t, 1, job.Attempts)
	}

	job, err := stores.Jobs.Claim(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, job)

	// Active jobs still block duplicates
	added, err := stores.Jobs.Enqueue(ctx, testJob("job-0"))
	require.NoError(t, err)
	assert.False(t, added)
}

func TestJobRepository_RetryDelaysClaim(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Jobs.Enqueue(ctx, testJob("r"))
	require.NoError(t, err)

	now := time.Now().Add(time.Second)
	job, err := stores.Jobs.Claim(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, job)

	retryAt := now.Add(time.Minute)
	require.NoError(t, stores.Jobs.Retry(ctx, "r", "render failed", retryAt))

	next, ok, err := stores.Jobs.NextReadyAt(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, retryAt, next, time.Millisecond)

	job, err = stores.Jobs.Claim(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, job, "job must not be claimable before its retry time")

	job, err = stores.Jobs.Claim(ctx, retryAt.Add(time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, "render failed", job.LastError)
}

func TestJobRepository_TerminalStates(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	for _, id := range []string{"ok", "bad"} {
		_, err := stores.Jobs.Enqueue(ctx, testJob(id))
		require.NoError(t, err)
	}
	now := time.Now().Add(time.Second)
	for i := 0; i < 2; i++ {
		job, err := stores.Jobs.Claim(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, job)
	}

	require.NoError(t, stores.Jobs.Complete(ctx, "ok", time.Hour))
	require.NoError(t, stores.Jobs.Bury(ctx, "bad", "gave up", time.Hour))

	ok, err := stores.Jobs.GetJob(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, core.JobStateCompleted, ok.State)

	bad, err := stores.Jobs.GetJob(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, core.JobStateDead, bad.State)
	assert.Equal(t, "gave up", bad.LastError)

	// Completing a non-active job is rejected
	err = stores.Jobs.Complete(ctx, "ok", time.Hour)
	assert.True(t, errors.Is(err, storage.ErrInvalidState))

	// Retained terminal records still deduplicate
	added, err := stores.Jobs.Enqueue(ctx, testJob("ok"))
	require.NoError(t, err)
	assert.False(t, added)

	counts, err := stores.Jobs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.JobCounts{Completed: 1, Dead: 1}, counts)
}

func TestJobRepository_RequeueActive(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Jobs.Enqueue(ctx, testJob("crash"))
	require.NoError(t, err)
	now := time.Now().Add(time.Second)
	job, err := stores.Jobs.Claim(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, job)

	n, err := stores.Jobs.RequeueActive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err = stores.Jobs.Claim(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "crash", job.ID)
	assert.Equal(t, 2, job.Attempts)
}

func TestJobRepository_GetJobNotFound(t *testing.T) {
	stores := newTestStores(t)
	_, err := stores.Jobs.GetJob(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
