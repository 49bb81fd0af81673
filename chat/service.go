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


package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// DefaultTopK is the number of chunks retrieved for every question.
const DefaultTopK = 10

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]core.SearchResult, error)
}

// Service runs retrieval-augmented chat turns.
type Service struct {
	retriever Retriever
	model     ai.ChatModel
	sessions  storage.SessionRepository
	locks     *sessionLocks
	topK      int
	system    string
	monitor   Monitor
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithTopK sets how many chunks are retrieved per question.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Service) error {
		if k < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidTopK, k)
		}
		s.topK = k
		return nil
	}
}

// WithSystemPrompt replaces the system instruction. The retrieved context
// is appended to it verbatim.
// Default is DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) error {
		s.system = prompt
		return nil
	}
}

// WithMonitor installs hooks that observe every turn.
func WithMonitor(m Monitor) Option {
	return func(s *Service) error {
		if m == nil {
			m = noopMonitor{}
		}
		s.monitor = m
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
		s.logger = logger.With("component", "chat")
		return nil
	}
}

// NewService creates a chat service.
func NewService(retriever Retriever, model ai.ChatModel, sessions storage.SessionRepository, opts ...Option) (*Service, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if model == nil {
		return nil, ErrChatModelRequired
	}
	if sessions == nil {
		return nil, ErrSessionRepositoryRequired
	}

	s := &Service{
		retriever: retriever,
		model:     model,
		sessions:  sessions,
		locks:     newSessionLocks(),
		topK:      DefaultTopK,
		system:    DefaultSystemPrompt,
		monitor:   noopMonitor{},
		logger:    slog.Default().With("component", "chat"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Chat starts a turn. An empty sessionID starts a new session.
//
// Retrieval and history lookup happen before Chat returns, so their
// failures are reported here. Generation runs in the background and is
// consumed with Turn.Recv. The turn holds the session until the stream
// ends or Close is called; concurrent calls on the same session wait.
// Every failure wraps core.ErrGeneration.
func (s *Service) Chat(ctx context.Context, query, sessionID string) (*Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrGeneration, ErrEmptyQuery)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := s.logger.With("session", sessionID)

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for session: %w", core.ErrGeneration, err)
	}
	s.monitor.Start(sessionID, query)

	history, err := s.sessions.GetTurns(ctx, sessionID)
	if err != nil {
		release()
		logger.Error("failed to load session history", "err", err)
		return nil, fmt.Errorf("%w: loading history: %w", core.ErrGeneration, err)
	}

	results, err := s.retriever.SimilaritySearch(ctx, query, s.topK)
	if err != nil {
		release()
		logger.Error("failed to retrieve context", "err", err)
		return nil, fmt.Errorf("%w: retrieval: %w", core.ErrGeneration, err)
	}
	s.monitor.AfterRetrieval(results)
	logger.Debug("retrieved context", "chunks", len(results), "history", len(history))

	messages := BuildPrompt(s.system, results, history, query)
	s.monitor.AfterPrompt(messages)

	genCtx, cancel := context.WithCancel(ctx)
	turn := newTurn(sessionID, cancel)
	go s.generate(genCtx, turn, query, messages, release, logger)
	return turn, nil
}

// generate streams the answer into turn and commits the exchange on success.
func (s *Service) generate(ctx context.Context, turn *Turn, query string, messages []ai.Message, release func(), logger *slog.Logger) {
	var answer strings.Builder
	err := s.model.StreamChat(ctx, messages, func(ctx context.Context, delta string) error {
		if delta == "" {
			return nil
		}
		select {
		case turn.deltas <- delta:
			answer.WriteString(delta)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = s.commit(ctx, turn.sessionID, query, answer.String())
	}

	if err != nil {
		logger.Warn("chat turn failed", "err", err)
		err = fmt.Errorf("%w: %w", core.ErrGeneration, err)
	} else {
		logger.Info("chat turn completed", "answer_len", answer.Len())
	}
	release()
	s.monitor.Finish(answer.String(), err)
	turn.finish(err)
}

func (s *Service) commit(ctx context.Context, sessionID, query, answer string) error {
	now := time.Now().UTC()
	return s.sessions.AppendTurns(ctx, sessionID,
		core.Turn{Role: core.RoleUser, Content: query, Timestamp: now},
		core.Turn{Role: core.RoleAssistant, Content: answer, Timestamp: now},
	)
}

// History returns the committed turns of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]core.Turn, error) {
	return s.sessions.GetTurns(ctx, sessionID)
}

// Reset deletes a session's history. It waits for a turn in progress on
// the same session to finish.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	return s.sessions.DeleteSession(ctx, sessionID)
}
