// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package newsdesk wires the feed ingestion pipeline and the chat service
// into one lifecycle-managed Service.
package newsdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/ai/jina"
	"github.com/poiesic/newsdesk/ai/openai"
	"github.com/poiesic/newsdesk/chat"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/extract"
	"github.com/poiesic/newsdesk/feed"
	"github.com/poiesic/newsdesk/queue"
	"github.com/poiesic/newsdesk/server"
	"github.com/poiesic/newsdesk/storage/badger"
	"github.com/poiesic/newsdesk/vectorstore"
)

// Vector store backends.
const (
	VectorStoreQdrant = "qdrant"
	VectorStoreLocal  = "local"
)

// Page renderers.
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

var (
	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrServiceStopped is returned when starting a service that was shut down.
	ErrServiceStopped = errors.New("service stopped")
)

// Config holds every setting of a Service.
type Config struct {
	// DataDir is the BadgerDB directory holding markers, jobs, sessions
	// and the local chunk index.
	DataDir string
	// InMemory keeps all state in memory. DataDir is ignored.
	InMemory bool
	// SessionTTL is how long an idle chat session is kept.
	SessionTTL time.Duration

	// SourcesFile is a YAML source registry. Empty uses the built-in sources.
	SourcesFile string

	// VectorStore selects "qdrant" or "local".
	VectorStore string
	Qdrant      vectorstore.QdrantConfig

	// Renderer selects "chrome" or "http" page rendering.
	Renderer      string
	RenderTimeout time.Duration
	FeedTimeout   time.Duration

	Concurrency int
	Throttle    time.Duration
	Retry       queue.RetryPolicy
	// Retention is how long finished job records block resubmission.
	Retention time.Duration

	AI *ai.Config
}

// DefaultConfig returns a configuration for a local Qdrant and Jina embeddings.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "./data",
		SessionTTL:    24 * time.Hour,
		VectorStore:   VectorStoreQdrant,
		Qdrant:        vectorstore.QdrantConfig{URL: "http://localhost:6333", Collection: vectorstore.DefaultCollection},
		Renderer:      RendererChrome,
		RenderTimeout: 60 * time.Second,
		FeedTimeout:   30 * time.Second,
		Concurrency:   1,
		Throttle:      5 * time.Second,
		Retry:         queue.DefaultRetryPolicy(),
		Retention:     24 * time.Hour,
		AI:            ai.DefaultConfig(),
	}
}

// Normalize lowercases selector values.
func (c *Config) Normalize() {
	c.VectorStore = strings.ToLower(strings.TrimSpace(c.VectorStore))
	c.Renderer = strings.ToLower(strings.TrimSpace(c.Renderer))
	if c.AI != nil {
		c.AI.Normalize()
	}
}

// Validate checks the configuration. Credentials are not checked.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("%w: data directory required", ErrInvalidConfig)
	}
	switch c.VectorStore {
	case VectorStoreQdrant:
		if c.Qdrant.URL == "" {
			return fmt.Errorf("%w: qdrant url required", ErrInvalidConfig)
		}
	case VectorStoreLocal:
	default:
		return fmt.Errorf("%w: unknown vector store %q", ErrInvalidConfig, c.VectorStore)
	}
	switch c.Renderer {
	case RendererChrome, RendererHTTP:
	default:
		return fmt.Errorf("%w: unknown renderer %q", ErrInvalidConfig, c.Renderer)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.Throttle < 0 || c.RenderTimeout < 0 || c.FeedTimeout < 0 || c.SessionTTL < 0 || c.Retention < 0 {
		return fmt.Errorf("%w: durations cannot be negative", ErrInvalidConfig)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.AI == nil {
		return fmt.Errorf("%w: ai config required", ErrInvalidConfig)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	provider  ai.AIProvider
	store     vectorstore.Store
	renderer  extract.Renderer
	fetcher   feed.Fetcher
	chatOpts  []chat.Option
	listeners []queue.Listener
	logger    *slog.Logger
}

// WithAIProvider uses provider instead of building one from Config.AI.
// The Service takes ownership and closes it on Shutdown.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithVectorStore uses store instead of the configured backend.
func WithVectorStore(store vectorstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithRenderer uses renderer instead of the configured one.
func WithRenderer(renderer extract.Renderer) Option {
	return func(o *options) { o.renderer = renderer }
}

// WithFetcher uses fetcher to read feeds.
func WithFetcher(fetcher feed.Fetcher) Option {
	return func(o *options) { o.fetcher = fetcher }
}

// WithChatOptions passes extra options to the chat service.
func WithChatOptions(opts ...chat.Option) Option {
	return func(o *options) { o.chatOpts = append(o.chatOpts, opts...) }
}

// WithJobListener registers a listener for extraction job outcomes.
func WithJobListener(l queue.Listener) Option {
	return func(o *options) { o.listeners = append(o.listeners, l) }
}

// WithLogger sets the base logger of every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Service owns the storage, the job queue, the extraction worker and the
// feed and chat services.
type Service struct {
	config   *Config
	stores   *badger.Stores
	provider ai.AIProvider
	store    vectorstore.Store
	renderer extract.Renderer
	queue    *queue.Queue
	worker   *queue.Worker
	feeds    *feed.Service
	chat     *chat.Service
	logger   *slog.Logger
}

// Open validates config, opens storage and builds every component.
// Storage failures wrap core.ErrStorageUnavailable.
func Open(config *Config, opts ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	registry, err := feed.LoadRegistry(config.SourcesFile)
	if err != nil {
		return nil, err
	}

	stores, err := badger.OpenStores(config.DataDir, config.InMemory, config.SessionTTL)
	if err != nil {
		return nil, err
	}
	s := &Service{
		config: config,
		stores: stores,
		logger: o.logger.With("component", "newsdesk"),
	}
	if err := s.build(o, registry); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(o *options, registry *feed.Registry) error {
	cfg := s.config

	s.provider = o.provider
	if s.provider == nil {
		provider, err := newProvider(cfg.AI)
		if err != nil {
			return err
		}
		s.provider = provider
	}

	s.store = o.store
	if s.store == nil {
		store, err := newVectorStore(cfg, s.stores, s.provider.Embedder())
		if err != nil {
			return err
		}
		s.store = store
	}

	s.renderer = o.renderer
	if s.renderer == nil {
		s.renderer = newRenderer(cfg)
	}

	q, err := queue.NewQueue(s.stores.Jobs, queue.WithQueueLogger(o.logger))
	if err != nil {
		return err
	}
	s.queue = q

	handler, err := extract.NewHandler(s.renderer, s.store, s.stores.Markers, extract.WithLogger(o.logger))
	if err != nil {
		return err
	}
	workerOpts := []queue.Option{
		queue.WithConcurrency(cfg.Concurrency),
		queue.WithThrottle(cfg.Throttle),
		queue.WithRetryPolicy(cfg.Retry),
		queue.WithRetention(cfg.Retention),
		queue.WithLogger(o.logger),
	}
	for _, l := range o.listeners {
		workerOpts = append(workerOpts, queue.WithListener(l))
	}
	s.worker, err = queue.NewWorker(q, handler, workerOpts...)
	if err != nil {
		return err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = feed.NewGofeedFetcher(&http.Client{Timeout: cfg.FeedTimeout})
	}
	s.feeds, err = feed.NewService(fetcher, s.stores.Markers, q,
		feed.WithRegistry(registry),
		feed.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}

	chatOpts := append([]chat.Option{chat.WithLogger(o.logger)}, o.chatOpts...)
	s.chat, err = chat.NewService(s.store, s.provider.ChatModel(), s.stores.Sessions, chatOpts...)
	return err
}

func newProvider(cfg *ai.Config) (ai.AIProvider, error) {
	var opts []openai.ProviderOption
	if cfg.EmbeddingProvider == ai.EmbeddingProviderJina {
		embedder, err := jina.NewEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, openai.WithEmbedder(embedder))
	}
	return openai.NewProvider(cfg, opts...)
}

func newVectorStore(cfg *Config, stores *badger.Stores, embedder ai.Embedder) (vectorstore.Store, error) {
	if cfg.VectorStore == VectorStoreLocal {
		return vectorstore.NewLocal(stores.Chunks, embedder)
	}
	return vectorstore.NewQdrant(cfg.Qdrant, embedder)
}

func newRenderer(cfg *Config) extract.Renderer {
	if cfg.Renderer == RendererHTTP {
		return extract.NewHTTPRenderer(&http.Client{Timeout: cfg.RenderTimeout})
	}
	return extract.NewChromeRenderer(cfg.RenderTimeout)
}

// Start requeues interrupted jobs and starts the extraction worker.
func (s *Service) Start(ctx context.Context) error {
	if s.stores == nil {
		return ErrServiceStopped
	}
	return s.worker.Start(ctx)
}

// Shutdown stops the worker, waiting for the running job until ctx ends,
// then releases the renderer, the AI provider and storage.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.stores == nil {
		return nil
	}
	var errs []error
	if err := s.worker.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, s.close())
	return errors.Join(errs...)
}

func (s *Service) close() error {
	var errs []error
	if closer, ok := s.renderer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("error closing renderer", "err", err)
			errs = append(errs, err)
		}
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.stores != nil {
		if err := s.stores.Close(); err != nil {
			s.logger.Error("error closing storage", "err", err)
			errs = append(errs, fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err))
		}
		s.stores = nil
	}
	return errors.Join(errs...)
}

// Feeds returns the feed ingestion service.
func (s *Service) Feeds() *feed.Service {
	return s.feeds
}

// Chat returns the chat service.
func (s *Service) Chat() *chat.Service {
	return s.chat
}

// Queue returns the extraction job queue.
func (s *Service) Queue() *queue.Queue {
	return s.queue
}

// Worker returns the extraction worker.
func (s *Service) Worker() *queue.Worker {
	return s.worker
}

// NewServer builds the HTTP front end over this service.
func (s *Service) NewServer(opts ...server.Option) (*server.Server, error) {
	opts = append([]server.Option{server.WithLogger(s.logger)}, opts...)
	return server.New(s.feeds, s.chat, opts...)
}
