// Package jina provides an ai.Embedder backed by the Jina embeddings API.
package jina

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
	"github.com/tmc/langchaingo/embeddings/jina"
)

// Embedder implements ai.Embedder using Jina AI embeddings.
type Embedder struct {
	client *jina.Jina
	logger *slog.Logger
}

// NewEmbedder creates a Jina embedder from the embedding settings of config.
// An empty API key falls back to the JINA_API_KEY environment variable.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.EmbeddingProvider != ai.EmbeddingProviderJina {
		return nil, errors.New("jina: config selects a different embedding provider")
	}

	opts := []jina.Option{
		jina.WithModel(config.EmbeddingModel),
		jina.WithStripNewLines(true),
	}
	if config.EmbeddingAPIKey != "" {
		opts = append(opts, jina.WithAPIKey(config.EmbeddingAPIKey))
	}
	client, err := jina.NewJina(opts...)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: client,
		logger: slog.Default().With("component", "jina-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}
