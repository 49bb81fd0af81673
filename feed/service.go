package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

var (
	// ErrFetcherRequired is returned when a service is created without a fetcher.
	ErrFetcherRequired = errors.New("feed fetcher required")
	// ErrMarkerRepositoryRequired is returned when a service is created without markers.
	ErrMarkerRepositoryRequired = errors.New("marker repository required")
	// ErrEnqueuerRequired is returned when a service is created without a job queue.
	ErrEnqueuerRequired = errors.New("job queue required")
)

// Enqueuer accepts ingestion jobs. It reports false for ids it already knows.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *core.Job) (bool, error)
}

// Result is the outcome of ingesting one registered source.
type Result struct {
	Source   Source
	Articles []core.Article
}

// Service polls feeds and submits new articles for extraction.
type Service struct {
	fetcher  Fetcher
	markers  storage.MarkerRepository
	queue    Enqueuer
	registry *Registry
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithRegistry sets the source registry.
// Default is DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(s *Service) error {
		if err := r.Validate(); err != nil {
			return err
		}
		s.registry = r
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "feed")
		return nil
	}
}

// NewService creates a feed ingestion service.
func NewService(fetcher Fetcher, markers storage.MarkerRepository, queue Enqueuer, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if markers == nil {
		return nil, ErrMarkerRepositoryRequired
	}
	if queue == nil {
		return nil, ErrEnqueuerRequired
	}
	s := &Service{
		fetcher:  fetcher,
		markers:  markers,
		queue:    queue,
		registry: DefaultRegistry(),
		logger:   slog.Default().With("component", "feed"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Registry returns the configured sources.
func (s *Service) Registry() *Registry {
	return s.registry
}

// IngestSource resolves name in the registry and ingests its feed.
// Unknown names return core.ErrInvalidSource and submit nothing.
func (s *Service) IngestSource(ctx context.Context, name string) (*Result, error) {
	src, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidSource, name)
	}
	return &Result{
		Source:   src,
		Articles: s.Ingest(ctx, src.URL, src.Key()),
	}, nil
}

// Ingest fetches feedURL and submits up to the per-source cap of
// unprocessed articles, in feed order. Items without link, title or
// snippet and items already processed are skipped and do not count
// towards the cap. An article whose job is already known still counts;
// the queue absorbs the duplicate submission. Fetch failures are logged
// and yield an empty list.
func (s *Service) Ingest(ctx context.Context, feedURL, source string) []core.Article {
	logger := s.logger.With("source", source, "url", feedURL)

	items, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		logger.Error("failed to fetch feed", "err", fmt.Errorf("%w: %w", core.ErrFeedFetch, err))
		return []core.Article{}
	}
	logger.Info("fetched feed", "items", len(items))

	articles := make([]core.Article, 0, s.registry.PerSourceCap)
	for _, item := range items {
		if len(articles) >= s.registry.PerSourceCap {
			break
		}
		if item.Link == "" || item.Title == "" || item.ContentSnippet == "" {
			continue
		}
		id := core.ArticleID(item.GUID, item.ID, item.Link)

		processed, err := s.markers.IsProcessed(ctx, source, id)
		if err != nil {
			logger.Error("failed to read processed marker", "article", id, "err", err)
			continue
		}
		if processed {
			continue
		}

		published := item.Published
		if published.IsZero() {
			published = time.Now().UTC()
		}
		article := core.Article{
			ID:          id,
			Title:       item.Title,
			Snippet:     item.ContentSnippet,
			URL:         item.Link,
			PublishedAt: published,
			Source:      source,
		}

		added, err := s.queue.Enqueue(ctx, core.NewJob(article))
		if err != nil {
			logger.Warn("failed to submit article", "article", id, "err", err)
			continue
		}
		if !added {
			logger.Debug("article already queued", "article", id)
		}
		articles = append(articles, article)
	}

	logger.Info("ingested feed", "articles", len(articles))
	return articles
}
