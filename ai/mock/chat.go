package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/newsdesk/ai"
)

// MockChatModel is a test double for ai.ChatModel.
// By default it streams Deltas in order and then returns Err.
type MockChatModel struct {
	// Deltas are emitted one by one on every call.
	Deltas []string

	// Err is returned after all deltas have been emitted.
	Err error

	// StreamChatFunc replaces the default behavior if set.
	StreamChatFunc func(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc) error

	mu      sync.Mutex
	prompts [][]ai.Message
}

// NewMockChatModel creates a mock chat model that streams the given deltas.
func NewMockChatModel(deltas ...string) *MockChatModel {
	return &MockChatModel{Deltas: deltas}
}

// StreamChat records the prompt and streams the scripted deltas.
func (m *MockChatModel) StreamChat(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc) error {
	m.mu.Lock()
	m.prompts = append(m.prompts, slices.Clone(messages))
	m.mu.Unlock()

	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, messages, onDelta)
	}

	for _, delta := range m.Deltas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onDelta(ctx, delta); err != nil {
			return err
		}
	}
	return m.Err
}

// Prompts returns every prompt received so far, oldest first.
func (m *MockChatModel) Prompts() [][]ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.prompts)
}

// LastPrompt returns the most recent prompt, or nil.
func (m *MockChatModel) LastPrompt() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return nil
	}
	return m.prompts[len(m.prompts)-1]
}

// CallCount returns the number of StreamChat calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
