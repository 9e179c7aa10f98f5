package ai

import (
	"context"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message sent to a language model.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Request is a chat-completion request. The model is fixed by the client.
type Request struct {
	Messages []Message
}

// Client is a chat-completion backend.
type Client interface {
	// Complete performs a blocking completion and returns the full response text.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream starts a streamed completion. The returned stream must be folded
	// exactly once.
	Stream(ctx context.Context, req Request) (*Stream, error)

	Provider() string
	Model() string
}
