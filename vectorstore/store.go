// Package vectorstore indexes article chunks and answers similarity queries.
//
// Two implementations are provided: Qdrant, which talks to a Qdrant server
// through langchaingo, and Local, which keeps normalized embeddings in the
// BadgerDB chunk repository and is used for development and tests.
package vectorstore

import (
	"context"
	"errors"

	"github.com/poiesic/newsdesk/core"
)

var (
	// ErrEmbedderRequired is returned when a store is created without an embedder.
	ErrEmbedderRequired = errors.New("vectorstore: embedder is required")
	// ErrRepositoryRequired is returned when a local store is created without a repository.
	ErrRepositoryRequired = errors.New("vectorstore: chunk repository is required")
	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("vectorstore: embedding count mismatch")
)

// Store is the document index used by ingestion and chat.
// Implementations must be safe for concurrent use.
type Store interface {
	// AddDocuments embeds and stores all chunks in one batch call.
	AddDocuments(ctx context.Context, chunks []core.Chunk) error

	// SimilaritySearch returns up to k chunks most similar to query,
	// highest score first. Ties keep the store's native order.
	SimilaritySearch(ctx context.Context, query string, k int) ([]core.SearchResult, error)
}
