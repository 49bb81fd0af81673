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


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/newsdesk"
	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/chat"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/feed"
	"github.com/poiesic/newsdesk/queue"
	"github.com/poiesic/newsdesk/server"
	"github.com/poiesic/newsdesk/sse"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "newsdesk",
		Usage: "News ingestion pipeline and retrieval-augmented chat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB directory for markers, jobs and sessions",
				Value:   "./data",
				EnvVars: []string{"DATA_DIR"},
			},
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "Keep all state in memory (nothing survives a restart)",
			},
			&cli.StringFlag{
				Name:    "sources-file",
				Usage:   "YAML file with the feed source registry (built-in sources if empty)",
				EnvVars: []string{"SOURCES_FILE"},
			},
			&cli.StringFlag{
				Name:    "vector-store",
				Usage:   "Vector store backend (qdrant, local)",
				Value:   newsdesk.VectorStoreQdrant,
				EnvVars: []string{"VECTOR_STORE"},
			},
			&cli.StringFlag{
				Name:    "qdrant-url",
				Usage:   "Qdrant server URL",
				Value:   "http://localhost:6333",
				EnvVars: []string{"QDRANT_URL"},
			},
			&cli.StringFlag{
				Name:    "qdrant-api-key",
				Usage:   "Qdrant API key",
				EnvVars: []string{"QDRANT_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "qdrant-collection",
				Usage:   "Qdrant collection holding article chunks",
				Value:   "articles",
				EnvVars: []string{"QDRANT_COLLECTION"},
			},
			&cli.StringFlag{
				Name:    "embedding-provider",
				Usage:   "Embedding backend (jina, openai)",
				Value:   ai.EmbeddingProviderJina,
				EnvVars: []string{"EMBEDDING_PROVIDER"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "OpenAI-compatible embedding service URL (openai provider only)",
				EnvVars: []string{"EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "jina-embeddings-v2-base-en",
				EnvVars: []string{"EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-api-key",
				Usage:   "Embedding service API key",
				EnvVars: []string{"EMBEDDING_API_KEY", "JINA_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "chat-host",
				Usage:   "OpenAI-compatible chat completion service URL",
				Value:   "https://generativelanguage.googleapis.com/v1beta/openai",
				EnvVars: []string{"CHAT_HOST"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				Value:   "gemini-1.5-flash",
				EnvVars: []string{"CHAT_MODEL"},
			},
			&cli.StringFlag{
				Name:    "chat-api-key",
				Usage:   "Chat service API key",
				EnvVars: []string{"CHAT_API_KEY", "GEMINI_API_KEY"},
			},
			&cli.IntFlag{
				Name:    "max-output-tokens",
				Usage:   "Maximum tokens generated per answer",
				Value:   2048,
				EnvVars: []string{"MAX_OUTPUT_TOKENS"},
			},
			&cli.StringFlag{
				Name:    "renderer",
				Usage:   "Page renderer (chrome, http)",
				Value:   newsdesk.RendererChrome,
				EnvVars: []string{"RENDERER"},
			},
			&cli.DurationFlag{
				Name:  "render-timeout",
				Usage: "Timeout for rendering one article page",
				Value: 60 * time.Second,
			},
			&cli.DurationFlag{
				Name:    "feed-timeout",
				Usage:   "Timeout for fetching one RSS feed",
				Value:   30 * time.Second,
				EnvVars: []string{"FEED_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of extraction jobs run at once",
				Value: 1,
			},
			&cli.DurationFlag{
				Name:  "throttle",
				Usage: "Pause after each successful extraction job",
				Value: 5 * time.Second,
			},
			&cli.IntFlag{
				Name:    "max-attempts",
				Usage:   "Maximum attempts per extraction job",
				Value:   3,
				EnvVars: []string{"JOB_MAX_ATTEMPTS"},
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff between job attempts",
				Value: 1 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "max-retry-delay",
				Usage: "Upper bound of the backoff delay",
				Value: 1 * time.Minute,
			},
			&cli.DurationFlag{
				Name:    "job-retention",
				Usage:   "How long finished job records are kept and block resubmission",
				Value:   24 * time.Hour,
				EnvVars: []string{"JOB_RETENTION"},
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "How long an idle chat session is kept",
				Value:   24 * time.Hour,
				EnvVars: []string{"SESSION_TTL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the extraction worker and the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP listen port",
						Value:   5000,
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:    "allowed-origins",
						Usage:   "Comma-separated origins allowed to call the API",
						EnvVars: []string{"ALLOWED_ORIGINS"},
					},
					&cli.StringFlag{
						Name:    "base-path",
						Usage:   "Path prefix of the API routes, e.g. /api",
						EnvVars: []string{"API_BASE_URL", "BASE_PATH"},
					},
					&cli.DurationFlag{
						Name:  "pacing",
						Usage: "Delay between streamed chunk events",
						Value: sse.DefaultPacing,
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest the latest articles of one source and wait for extraction",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Registered source name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "no-wait",
						Usage: "Only submit jobs; do not run the extraction worker",
					},
				},
			},
			{
				Name:      "chat",
				Usage:     "Ask a question and stream the answer",
				ArgsUsage: "QUESTION",
				Action:    chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Continue an existing session",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "Print the retrieved articles before the answer",
					},
				},
			},
			{
				Name:   "sources",
				Usage:  "List the registered feed sources",
				Action: sourcesCommand,
			},
		},
	}
}

// configFromContext builds the service configuration from global flags.
func configFromContext(c *cli.Context) *newsdesk.Config {
	cfg := newsdesk.DefaultConfig()
	cfg.DataDir = c.String("data-dir")
	cfg.InMemory = c.Bool("in-memory")
	cfg.SourcesFile = c.String("sources-file")
	cfg.SessionTTL = c.Duration("session-ttl")
	cfg.VectorStore = c.String("vector-store")
	cfg.Qdrant.URL = c.String("qdrant-url")
	cfg.Qdrant.APIKey = c.String("qdrant-api-key")
	cfg.Qdrant.Collection = c.String("qdrant-collection")
	cfg.Renderer = c.String("renderer")
	cfg.RenderTimeout = c.Duration("render-timeout")
	cfg.FeedTimeout = c.Duration("feed-timeout")
	cfg.Concurrency = c.Int("concurrency")
	cfg.Throttle = c.Duration("throttle")
	cfg.Retry = queue.RetryPolicy{
		MaxAttempts: c.Int("max-attempts"),
		BaseDelay:   c.Duration("retry-delay"),
		MaxDelay:    c.Duration("max-retry-delay"),
	}
	cfg.Retention = c.Duration("job-retention")
	cfg.AI = ai.NewConfig(
		ai.WithEmbeddingProvider(c.String("embedding-provider")),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingAPIKey(c.String("embedding-api-key")),
		ai.WithChatHost(c.String("chat-host")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithChatAPIKey(c.String("chat-api-key")),
		ai.WithMaxOutputTokens(c.Int("max-output-tokens")),
	)
	return cfg
}

func openService(c *cli.Context, opts ...newsdesk.Option) (*newsdesk.Service, error) {
	svc, err := newsdesk.Open(configFromContext(c), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

func shutdown(svc *newsdesk.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer shutdown(svc)

	srv, err := svc.NewServer(
		server.WithAddr(fmt.Sprintf(":%d", c.Int("port"))),
		server.WithBasePath(c.String("base-path")),
		server.WithAllowedOrigins(strings.Split(c.String("allowed-origins"), ",")...),
		server.WithEmitter(&sse.Emitter{Pacing: c.Duration("pacing")}),
	)
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return srv.ListenAndServe(ctx)
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := queue.NewProgress(c.App.ErrWriter)
	svc, err := openService(c, newsdesk.WithJobListener(progress))
	if err != nil {
		return err
	}
	defer shutdown(svc)

	result, err := svc.Feeds().IngestSource(ctx, c.String("source"))
	if err != nil {
		return err
	}
	out := c.App.Writer
	fmt.Fprintf(out, "Ingesting %d articles from %s\n", len(result.Articles), result.Source.Name)
	for _, a := range result.Articles {
		fmt.Fprintf(out, "  %s\n    %s\n", a.Title, a.URL)
	}
	if c.Bool("no-wait") || len(result.Articles) == 0 {
		return nil
	}

	progress.Start(len(result.Articles))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	err = waitForQueue(ctx, svc.Queue(), time.Second)
	progress.Finish()
	if err != nil {
		return err
	}
	stats, err := svc.Queue().Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Done: %d completed, %d dead\n", stats.Completed, stats.Dead)
	return nil
}

// waitForQueue polls until no job is queued or active.
func waitForQueue(ctx context.Context, q *queue.Queue, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pending, err := q.Pending(ctx)
		if err != nil {
			return err
		}
		if !pending {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func chatCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("a question is required")
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []newsdesk.Option
	if c.Bool("show-sources") {
		opts = append(opts, newsdesk.WithChatOptions(chat.WithMonitor(sourcePrinter(c.App.ErrWriter))))
	}
	svc, err := openService(c, opts...)
	if err != nil {
		return err
	}
	defer shutdown(svc)

	turn, err := svc.Chat().Chat(ctx, query, c.String("session"))
	if err != nil {
		return err
	}
	defer turn.Close()

	fmt.Fprintf(c.App.ErrWriter, "session: %s\n", turn.SessionID())
	return streamAnswer(ctx, c.App.Writer, turn)
}

func streamAnswer(ctx context.Context, w io.Writer, stream sse.Stream) error {
	for {
		delta, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprint(w, delta)
	}
}

func sourcePrinter(w io.Writer) chat.Monitor {
	return chat.MonitorFuncs{
		AfterRetrievalFunc: func(results []core.SearchResult) {
			seen := make(map[string]bool)
			for _, r := range results {
				meta := r.Chunk.Metadata
				if seen[meta.URL] {
					continue
				}
				seen[meta.URL] = true
				fmt.Fprintf(w, "[%.3f] %s (%s)\n", r.Score, meta.Title, meta.URL)
			}
		},
	}
}

func sourcesCommand(c *cli.Context) error {
	registry, err := feed.LoadRegistry(c.String("sources-file"))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKEY\tURL")
	for _, src := range registry.Sources {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", src.Name, src.Key(), src.URL)
	}
	fmt.Fprintf(tw, "\nper-source cap: %d\n", registry.PerSourceCap)
	return tw.Flush()
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
