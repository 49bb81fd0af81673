package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobSerialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.Job{
		ID: "https://example.com/a",
		Article: core.Article{
			ID:          "https://example.com/a",
			Title:       "Ünïcödé title",
			Snippet:     "snippet",
			URL:         "https://example.com/a",
			PublishedAt: now.Add(-time.Hour),
			Source:      "the guardian science",
		},
		State:      core.JobStateDead,
		Attempts:   3,
		LastError:  "timeout",
		NotBefore:  now,
		EnqueuedAt: now.Add(-time.Minute),
	}

	decoded, err := UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, job.Article.Title, decoded.Article.Title)
	assert.True(t, job.Article.PublishedAt.Equal(decoded.Article.PublishedAt))
	assert.Equal(t, core.JobStateDead, decoded.State)
	assert.Equal(t, 3, decoded.Attempts)
	assert.Equal(t, "timeout", decoded.LastError)
	assert.True(t, decoded.UpdatedAt.IsZero(), "zero times round-trip as zero")
}

func TestTurnsSerialization_Empty(t *testing.T) {
	turns, err := UnmarshalTurns(MarshalTurns(nil))
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStoredChunkSerialization(t *testing.T) {
	sc := &StoredChunk{
		Chunk: core.Chunk{
			Text:     "window",
			Index:    4,
			Metadata: core.ChunkMetadata{Source: "s", ArticleID: "a", Title: "t", URL: "https://example.com"},
		},
		Vector: []float32{0.25, -1.5, 0},
	}
	decoded, err := UnmarshalStoredChunk(MarshalStoredChunk(sc))
	require.NoError(t, err)
	assert.Equal(t, sc.Chunk, decoded.Chunk)
	assert.Equal(t, sc.Vector, decoded.Vector)
}

func TestUnmarshal_Truncated(t *testing.T) {
	data := MarshalJob(&core.Job{ID: "abc", Article: core.Article{ID: "abc", Title: "a long enough title"}})
	_, err := UnmarshalJob(data[:len(data)/2])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}
