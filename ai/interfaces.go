package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MessageRole identifies the author of a prompt message.
type MessageRole int

const (
	// MessageSystem carries instructions and retrieved context.
	MessageSystem MessageRole = iota + 1
	// MessageUser is a question asked by the human.
	MessageUser
	// MessageAssistant is a previous answer of the model.
	MessageAssistant
)

func (r MessageRole) String() string {
	switch r {
	case MessageSystem:
		return "system"
	case MessageUser:
		return "user"
	case MessageAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message is one entry of a chat prompt.
type Message struct {
	Role    MessageRole
	Content string
}

// DeltaFunc receives generated text in order, one delta per call.
// Returning an error aborts generation.
type DeltaFunc func(ctx context.Context, delta string) error

// ChatModel generates answers in streaming mode.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// StreamChat runs the model over messages and calls onDelta for every
	// text delta as it is produced. It returns once generation has finished,
	// failed, or ctx was cancelled. Deltas are never delivered after
	// StreamChat returns.
	StreamChat(ctx context.Context, messages []Message, onDelta DeltaFunc) error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and ChatModel instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChatModel returns the streaming chat service.
	// The returned ChatModel is safe for concurrent use.
	ChatModel() ChatModel

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
