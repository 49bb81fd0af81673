package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// Local is a Store over a storage.ChunkRepository. Embeddings are normalized
// before they are stored so the repository's dot product ranks by cosine
// similarity.
type Local struct {
	repo     storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ Store = (*Local)(nil)

// NewLocal creates a Local store.
func NewLocal(repo storage.ChunkRepository, embedder ai.Embedder) (*Local, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	return &Local{
		repo:     repo,
		embedder: embedder,
		logger:   slog.Default().With("component", "local-vectorstore"),
	}, nil
}

// AddDocuments embeds all chunk texts in one batch and stores them in one transaction.
func (l *Local) AddDocuments(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := l.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrEmbeddingMismatch, len(chunks), len(vectors))
	}

	stored := make([]*storage.StoredChunk, len(chunks))
	for i := range chunks {
		stored[i] = &storage.StoredChunk{
			Chunk:  chunks[i],
			Vector: normalizeVector(vectors[i]),
		}
	}
	if err := l.repo.AddChunks(ctx, stored...); err != nil {
		return err
	}
	l.logger.Debug("added documents", "count", len(stored))
	return nil
}

// SimilaritySearch embeds query and returns the k nearest chunks.
func (l *Local) SimilaritySearch(ctx context.Context, query string, k int) ([]core.SearchResult, error) {
	vector, err := l.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := l.repo.FindSimilar(ctx, normalizeVector(vector), k)
	if err != nil {
		return nil, err
	}
	results := make([]core.SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = *hit
	}
	return results, nil
}
