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


package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/poiesic/newsdesk/chat"
	"github.com/poiesic/newsdesk/feed"
	"github.com/poiesic/newsdesk/sse"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":5000"

	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Ingester ingests a registered feed source by name.
type Ingester interface {
	IngestSource(ctx context.Context, name string) (*feed.Result, error)
}

// Chatter starts chat turns.
type Chatter interface {
	Chat(ctx context.Context, query, sessionID string) (*chat.Turn, error)
}

// Server is the HTTP front end.
type Server struct {
	ingester       Ingester
	chat           Chatter
	emitter        *sse.Emitter
	addr           string
	basePath       string
	allowedOrigins []string
	drainTimeout   time.Duration
	logger         *slog.Logger
	router         chi.Router
}

// Option configures a Server.
type Option func(*Server) error

// WithAddr sets the listen address.
// Default is DefaultAddr.
func WithAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithBasePath mounts the API routes under path, e.g. "/api".
func WithBasePath(path string) Option {
	return func(s *Server) error {
		path = strings.TrimRight(strings.TrimSpace(path), "/")
		if path != "" && !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%w: %q", ErrInvalidBasePath, path)
		}
		s.basePath = path
		return nil
	}
}

// WithAllowedOrigins sets the origins allowed to make cross-origin requests.
// "*" allows every origin. Empty entries are ignored.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) error {
		s.allowedOrigins = s.allowedOrigins[:0]
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				s.allowedOrigins = append(s.allowedOrigins, o)
			}
		}
		return nil
	}
}

// WithEmitter sets the event-stream emitter used by /chat.
// Default is sse.NewEmitter().
func WithEmitter(e *sse.Emitter) Option {
	return func(s *Server) error {
		if e != nil {
			s.emitter = e
		}
		return nil
	}
}

// WithShutdownTimeout bounds how long Serve waits for in-flight requests
// once its context ends. Default is 10 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d > 0 {
			s.drainTimeout = d
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
		return nil
	}
}

// New creates a server and builds its routes.
func New(ingester Ingester, chatter Chatter, opts ...Option) (*Server, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	if chatter == nil {
		return nil, ErrChatServiceRequired
	}

	s := &Server{
		ingester:     ingester,
		chat:         chatter,
		emitter:      sse.NewEmitter(),
		addr:         DefaultAddr,
		drainTimeout: defaultShutdownTimeout,
		logger:       slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.emitter.Logger == nil {
		s.emitter.Logger = s.logger
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  s.allowOrigin,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-API-Key", "Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	api := func(r chi.Router) {
		r.Post("/knowledge/rss", s.handleIngest)
		r.Post("/chat", s.handleChat)
	}
	if s.basePath == "" {
		api(r)
	} else {
		r.Route(s.basePath, api)
	}
	return r
}

func (s *Server) allowOrigin(_ *http.Request, origin string) bool {
	return slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on the configured address and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx ends, then shuts down gracefully.
// In-flight streams are cancelled when the shutdown timeout expires.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String(), "base_path", s.basePath)
		errs <- srv.Serve(ln)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown timed out, closing connections", "err", err)
		cancelBase()
		return fmt.Errorf("graceful shutdown: %w", errors.Join(err, srv.Close()))
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
