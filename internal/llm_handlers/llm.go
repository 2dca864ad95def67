package llmHandlers

import (
	"context"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole
	Content string
}

// Client is a chat completion backend. Implementations must be safe for
// concurrent use.
type Client interface {
	Chat(ctx context.Context, systemMessage string, messages []Message) (string, error)
}

// UserMessage is the common single-turn conversation.
func UserMessage(text string) []Message {
	return []Message{{Role: RoleUser, Content: text}}
}
