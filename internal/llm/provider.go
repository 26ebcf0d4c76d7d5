// Package llm defines the synchronous LLM provider boundary the
// dispatcher calls into during the Prompting/LLMCalling turn states.
// Grounded on the teacher's internal/agent/provider_types.go
// (LLMProvider/CompletionRequest/CompletionChunk), collapsed from a
// streaming channel interface to a single request/response call since the
// spec's literal scenarios describe one LLM round trip per state, not
// token-level streaming to a client.
package llm

import (
	"context"
	"encoding/json"

	"github.com/triadhq/assistant/pkg/models"
)

// Provider is an LLM backend capable of completing one request.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
	Models() []Model
	SupportsTools() bool
}

// Message mirrors the teacher's CompletionMessage shape.
type Message struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// Tool describes one function the LLM may call, named in dot form
// (spec §4.5 name translation) by the time it reaches a Provider.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
}

// Request is one completion request.
type Request struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Response is the non-streaming result of a completion request.
type Response struct {
	Text         string            `json:"text,omitempty"`
	ToolCalls    []models.ToolCall `json:"tool_calls,omitempty"`
	InputTokens  int               `json:"input_tokens,omitempty"`
	OutputTokens int               `json:"output_tokens,omitempty"`
}

// Model describes an available model and its capabilities.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}
