// Package llm defines the chat-completion interface the relay uses to reach
// a hosted language model.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Errors shared by providers.
var (
	ErrNotConfigured = errors.New("llm provider not configured")
	ErrEmptyReply    = errors.New("model returned no content")
)

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request. System is sent ahead of Messages.
type Request struct {
	System      string
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
}

// Response is the model's reply.
type Response struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Completer produces one reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Name() string
}
