package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/newsdesk/ai/mock"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps known words to orthogonal axes.
func axisEmbedder() *mock.MockEmbedder {
	axes := map[string][]float32{
		"rockets":  {3, 0, 0},
		"markets":  {0, 2, 0},
		"fossils":  {0, 0, 5},
		"space":    {1, 0.1, 0},
		"business": {0, 1, 0.2},
	}
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return axes[text], nil
	}
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = axes[text]
		}
		return out, nil
	}
	return m
}

func newLocal(t *testing.T, embedder *mock.MockEmbedder) *Local {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	store, err := NewLocal(stores.Chunks, embedder)
	require.NoError(t, err)
	return store
}

func chunk(articleID string, index int, text string) core.Chunk {
	return core.Chunk{
		Text:     text,
		Index:    index,
		Metadata: core.ChunkMetadata{Source: "nbc tech", ArticleID: articleID},
	}
}

func TestLocal_SimilaritySearch(t *testing.T) {
	store := newLocal(t, axisEmbedder())
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []core.Chunk{
		chunk("a", 0, "rockets"),
		chunk("b", 0, "markets"),
		chunk("c", 0, "fossils"),
	}))

	results, err := store.SimilaritySearch(ctx, "space", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "rockets", results[0].Chunk.Text)
	assert.Equal(t, "a", results[0].Chunk.Metadata.ArticleID)
	assert.Equal(t, "markets", results[1].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)

	results, err = store.SimilaritySearch(ctx, "business", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "markets", results[0].Chunk.Text)
}

func TestLocal_AddDocumentsSingleBatch(t *testing.T) {
	embedder := axisEmbedder()
	store := newLocal(t, embedder)

	require.NoError(t, store.AddDocuments(context.Background(), []core.Chunk{
		chunk("a", 0, "rockets"),
		chunk("a", 1, "markets"),
	}))
	assert.Equal(t, 1, embedder.CallCount())
}

func TestLocal_EmbedderFailure(t *testing.T) {
	boom := errors.New("embedding service down")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}
	store := newLocal(t, embedder)

	err := store.AddDocuments(context.Background(), []core.Chunk{chunk("a", 0, "x")})
	assert.ErrorIs(t, err, boom)
}

func TestLocal_EmbeddingMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	store := newLocal(t, embedder)

	err := store.AddDocuments(context.Background(), []core.Chunk{chunk("a", 0, "x"), chunk("a", 1, "y")})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestNewLocal_RequiresCollaborators(t *testing.T) {
	_, err := NewLocal(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}
