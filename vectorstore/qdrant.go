package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
)

// DefaultCollection is the Qdrant collection holding article chunks.
const DefaultCollection = "articles"

// Metadata keys written as top-level Qdrant payload fields, next to the
// chunk text under "content".
const (
	metaSource = "source"
	metaID     = "id"
	metaTitle  = "title"
	metaURL    = "url"
	metaChunk  = "chunk"
)

// Qdrant is a Store backed by a Qdrant collection. The collection must
// already exist with a vector size matching the embedder.
type Qdrant struct {
	store      qdrant.Store
	collection string
	logger     *slog.Logger
}

var _ Store = (*Qdrant)(nil)

// QdrantConfig configures a Qdrant store.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// NewQdrant connects a Store to the Qdrant server at cfg.URL.
func NewQdrant(cfg QdrantConfig, embedder ai.Embedder) (*Qdrant, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("vectorstore: invalid qdrant url %q", cfg.URL)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	store, err := qdrant.New(
		qdrant.WithURL(*u),
		qdrant.WithAPIKey(cfg.APIKey),
		qdrant.WithCollectionName(collection),
		qdrant.WithEmbedder(langchainEmbedder{embedder: embedder}),
	)
	if err != nil {
		return nil, err
	}

	return &Qdrant{
		store:      store,
		collection: collection,
		logger:     slog.Default().With("component", "qdrant", "collection", collection),
	}, nil
}

// AddDocuments embeds and upserts all chunks in one request.
func (q *Qdrant) AddDocuments(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]schema.Document, len(chunks))
	for i := range chunks {
		docs[i] = toDocument(&chunks[i])
	}
	if _, err := q.store.AddDocuments(ctx, docs); err != nil {
		q.logger.Error("failed to add documents", "count", len(docs), "err", err)
		return err
	}
	q.logger.Debug("added documents", "count", len(docs))
	return nil
}

// SimilaritySearch returns the k chunks closest to query.
func (q *Qdrant) SimilaritySearch(ctx context.Context, query string, k int) ([]core.SearchResult, error) {
	docs, err := q.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		q.logger.Error("similarity search failed", "err", err)
		return nil, err
	}
	results := make([]core.SearchResult, len(docs))
	for i, doc := range docs {
		results[i] = fromDocument(doc)
	}
	return results, nil
}

func toDocument(c *core.Chunk) schema.Document {
	return schema.Document{
		PageContent: c.Text,
		Metadata: map[string]any{
			metaSource: c.Metadata.Source,
			metaID:     c.Metadata.ArticleID,
			metaTitle:  c.Metadata.Title,
			metaURL:    c.Metadata.URL,
			metaChunk:  c.Index,
		},
	}
}

// fromDocument decodes a search hit. Payload values arrive JSON-decoded,
// so numbers are float64 and unknown keys are ignored.
func fromDocument(doc schema.Document) core.SearchResult {
	return core.SearchResult{
		Chunk: core.Chunk{
			Text:  doc.PageContent,
			Index: intValue(doc.Metadata[metaChunk]),
			Metadata: core.ChunkMetadata{
				Source:    stringValue(doc.Metadata[metaSource]),
				ArticleID: stringValue(doc.Metadata[metaID]),
				Title:     stringValue(doc.Metadata[metaTitle]),
				URL:       stringValue(doc.Metadata[metaURL]),
			},
		},
		Score: doc.Score,
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
