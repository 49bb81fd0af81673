package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel over an OpenAI-compatible chat completion API.
type ChatModel struct {
	llm       llms.Model
	maxTokens int
	logger    *slog.Logger
}

func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(token(config.ChatAPIKey)),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		llm:       llm,
		maxTokens: config.MaxOutputTokens,
		logger:    slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a streaming chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// StreamChat streams the model's answer for messages to onDelta.
func (m *ChatModel) StreamChat(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc) error {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	m.logger.Debug("starting generation", "messages", len(messages))
	deltas := 0
	_, err := m.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(m.maxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			deltas++
			return onDelta(ctx, string(chunk))
		}),
	)
	if err != nil {
		m.logger.Error("generation failed", "deltas", deltas, "err", err)
		return err
	}
	m.logger.Debug("generation finished", "deltas", deltas)
	return nil
}

func messageType(role ai.MessageRole) llms.ChatMessageType {
	switch role {
	case ai.MessageSystem:
		return llms.ChatMessageTypeSystem
	case ai.MessageAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
