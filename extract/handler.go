package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"github.com/poiesic/newsdesk/vectorstore"
)

// Handler extracts, chunks and indexes the article of a queued job.
type Handler struct {
	renderer Renderer
	store    vectorstore.Store
	markers  storage.MarkerRepository
	chunker  Chunker
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler) error

// WithChunker replaces the default 1000/200 windowing.
func WithChunker(c Chunker) Option {
	return func(h *Handler) error {
		if err := c.Validate(); err != nil {
			return err
		}
		h.chunker = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger.With("component", "extractor")
		return nil
	}
}

// NewHandler creates an extraction handler.
func NewHandler(renderer Renderer, store vectorstore.Store, markers storage.MarkerRepository, opts ...Option) (*Handler, error) {
	if renderer == nil {
		return nil, ErrRendererRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if markers == nil {
		return nil, ErrMarkerRepositoryRequired
	}

	h := &Handler{
		renderer: renderer,
		store:    store,
		markers:  markers,
		chunker:  DefaultChunker(),
		logger:   slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Handle indexes job.Article unless it is already marked processed.
// Every failure is reported as core.ErrExtraction.
func (h *Handler) Handle(ctx context.Context, job *core.Job) error {
	article := job.Article
	logger := h.logger.With("article", article.ID, "source", article.Source)

	processed, err := h.markers.IsProcessed(ctx, article.Source, article.ID)
	if err != nil {
		return fmt.Errorf("%w: check marker: %w", core.ErrExtraction, err)
	}
	if processed {
		logger.Info("article already processed, skipping")
		return nil
	}

	raw, err := h.renderer.Render(ctx, article.URL)
	if err != nil {
		return fmt.Errorf("%w: render %s: %w", core.ErrExtraction, article.URL, err)
	}
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s: %w", core.ErrExtraction, article.URL, ErrEmptyPage)
	}

	chunks := h.Chunks(&article, text)
	if err := h.store.AddDocuments(ctx, chunks); err != nil {
		return fmt.Errorf("%w: write %d chunks: %w", core.ErrExtraction, len(chunks), err)
	}

	// Only after the whole batch is stored
	if err := h.markers.MarkProcessed(ctx, article.Source, article.ID); err != nil {
		return fmt.Errorf("%w: set marker: %w", core.ErrExtraction, err)
	}

	logger.Info("article indexed", "chunks", len(chunks), "characters", len([]rune(text)))
	return nil
}

// Chunks windows normalized text and attaches the article metadata.
func (h *Handler) Chunks(article *core.Article, text string) []core.Chunk {
	windows := h.chunker.Split(text)
	chunks := make([]core.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = core.Chunk{
			Text:  w,
			Index: i,
			Metadata: core.ChunkMetadata{
				Source:    article.Source,
				ArticleID: article.ID,
				Title:     article.Title,
				URL:       article.URL,
			},
		}
	}
	return chunks
}
