package vectorstore

import (
	"context"

	"github.com/poiesic/newsdesk/ai"
	"github.com/tmc/langchaingo/embeddings"
)

// langchainEmbedder exposes an ai.Embedder as a langchaingo embeddings.Embedder.
type langchainEmbedder struct {
	embedder ai.Embedder
}

var _ embeddings.Embedder = langchainEmbedder{}

func (e langchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedder.EmbedTexts(ctx, texts)
}

func (e langchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedText(ctx, text)
}
