package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/queue"
	"github.com/poiesic/newsdesk/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ queue.Handler = (*Handler)(nil)

type fakeRenderer struct {
	text  string
	err   error
	calls int
}

func (r *fakeRenderer) Render(ctx context.Context, url string) (string, error) {
	r.calls++
	return r.text, r.err
}

// recordingStore remembers every batch it receives.
type recordingStore struct {
	mu      sync.Mutex
	batches [][]core.Chunk
	err     error
}

func (s *recordingStore) AddDocuments(ctx context.Context, chunks []core.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, chunks)
	return nil
}

func (s *recordingStore) SimilaritySearch(ctx context.Context, query string, k int) ([]core.SearchResult, error) {
	return nil, nil
}

func testArticleJob() *core.Job {
	return core.NewJob(core.Article{
		ID:      "https://www.wired.com/story/chips",
		Title:   "Chip makers rally",
		Snippet: "Shares rose.",
		URL:     "https://www.wired.com/story/chips",
		Source:  "wired business",
	})
}

func newTestHandler(t *testing.T, renderer Renderer, store *recordingStore) (*Handler, *badger.Stores) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	h, err := NewHandler(renderer, store, stores.Markers)
	require.NoError(t, err)
	return h, stores
}

func TestHandler_IndexesArticleAndMarks(t *testing.T) {
	renderer := &fakeRenderer{text: strings.Repeat("word\n", 500)}
	store := &recordingStore{}
	h, stores := newTestHandler(t, renderer, store)
	ctx := context.Background()
	job := testArticleJob()

	require.NoError(t, h.Handle(ctx, job))

	require.Len(t, store.batches, 1, "all chunks of an article go in one batch")
	batch := store.batches[0]
	assert.Len(t, batch, 3)
	for i, c := range batch {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "wired business", c.Metadata.Source)
		assert.Equal(t, job.Article.ID, c.Metadata.ArticleID)
		assert.Equal(t, "Chip makers rally", c.Metadata.Title)
		assert.NotContains(t, c.Text, "\n")
	}

	processed, err := stores.Markers.IsProcessed(ctx, "wired business", job.Article.ID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestHandler_IdempotentPerArticle(t *testing.T) {
	renderer := &fakeRenderer{text: "some article text"}
	store := &recordingStore{}
	h, _ := newTestHandler(t, renderer, store)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, testArticleJob()))
	require.NoError(t, h.Handle(ctx, testArticleJob()))

	assert.Len(t, store.batches, 1)
	assert.Equal(t, 1, renderer.calls)
}

func TestHandler_NoMarkerWhenWriteFails(t *testing.T) {
	renderer := &fakeRenderer{text: "some article text"}
	store := &recordingStore{err: errors.New("qdrant unavailable")}
	h, stores := newTestHandler(t, renderer, store)
	ctx := context.Background()
	job := testArticleJob()

	err := h.Handle(ctx, job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrExtraction))

	processed, err := stores.Markers.IsProcessed(ctx, job.Article.Source, job.Article.ID)
	require.NoError(t, err)
	assert.False(t, processed)

	// A later attempt succeeds and indexes the article
	store.err = nil
	require.NoError(t, h.Handle(ctx, job))
	assert.Len(t, store.batches, 1)
}

func TestHandler_RenderFailure(t *testing.T) {
	boom := errors.New("navigation timeout")
	h, _ := newTestHandler(t, &fakeRenderer{err: boom}, &recordingStore{})

	err := h.Handle(context.Background(), testArticleJob())
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.ErrorIs(t, err, boom)
}

func TestHandler_EmptyPageIsFailure(t *testing.T) {
	store := &recordingStore{}
	h, _ := newTestHandler(t, &fakeRenderer{text: "\n\r\n"}, store)

	err := h.Handle(context.Background(), testArticleJob())
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.ErrorIs(t, err, ErrEmptyPage)
	assert.Empty(t, store.batches)
}

func TestNewHandler_Validation(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewHandler(nil, &recordingStore{}, stores.Markers)
	assert.ErrorIs(t, err, ErrRendererRequired)
	_, err = NewHandler(&fakeRenderer{}, nil, stores.Markers)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewHandler(&fakeRenderer{}, &recordingStore{}, nil)
	assert.ErrorIs(t, err, ErrMarkerRepositoryRequired)
	_, err = NewHandler(&fakeRenderer{}, &recordingStore{}, stores.Markers, WithChunker(Chunker{Size: 5, Overlap: 5}))
	assert.ErrorIs(t, err, ErrInvalidChunker)
}
