package chat

import (
	"strings"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
)

// DefaultSystemPrompt is the instruction sent ahead of every conversation.
// The retrieved context is appended after the trailing newline.
const DefaultSystemPrompt = "You are a helpful AI assistant for providing news. Context from knowledge base:\n"

// contextText joins chunk texts in rank order, separated by blank lines.
func contextText(results []core.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Chunk.Text)
	}
	return strings.Join(texts, "\n\n")
}

// BuildPrompt assembles the model input: the system instruction with the
// retrieved context, the history in chronological order, then the query.
func BuildPrompt(system string, results []core.SearchResult, history []core.Turn, query string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{
		Role:    ai.MessageSystem,
		Content: system + contextText(results),
	})
	for _, turn := range history {
		role := ai.MessageUser
		if turn.Role == core.RoleAssistant {
			role = ai.MessageAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	return append(messages, ai.Message{Role: ai.MessageUser, Content: query})
}
