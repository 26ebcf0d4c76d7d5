// Package openai wires github.com/sashabaranov/go-openai as an
// llm.Provider. Grounded on the teacher's
// internal/agent/providers/openai.go — message/tool conversion carried
// over, the chunked stream.Recv() consumer dropped for a single
// non-streaming client.CreateChatCompletion call per the collapsed
// synchronous Provider contract.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/internal/retryutil"
	"github.com/triadhq/assistant/pkg/models"
)

// Config configures the OpenAI provider.
type Config struct {
	APIKey       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// Provider implements llm.Provider against the OpenAI chat completions API.
type Provider struct {
	client       *openaisdk.Client
	retrier      retryutil.Retrier
	defaultModel string
}

// New creates an OpenAI-backed Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	return &Provider{
		client:       openaisdk.NewClient(cfg.APIKey),
		retrier:      retryutil.New(cfg.MaxRetries, cfg.RetryDelay),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Models() []llm.Model {
	return []llm.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", ContextSize: 16385, SupportsVision: false},
	}
}

func (p *Provider) SupportsTools() bool { return true }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, err := convertMessages(req.Messages, req.System)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai: convert messages: %w", err)
	}

	chatReq := openaisdk.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
	}

	var result openaisdk.ChatCompletionResponse
	err = p.retrier.Do(ctx, isRetryableError, func() error {
		var callErr error
		result, callErr = p.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return llm.Response{}, wrapError(err, model)
	}

	return toResponse(result), nil
}

func convertMessages(messages []llm.Message, system string) ([]openaisdk.ChatCompletionMessage, error) {
	out := make([]openaisdk.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openaisdk.ChatCompletionMessage{Role: openaisdk.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			m := openaisdk.ChatCompletionMessage{Role: openaisdk.ChatMessageRoleAssistant, Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openaisdk.ToolCall{
					ID:   tc.ID,
					Type: openaisdk.ToolTypeFunction,
					Function: openaisdk.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			out = append(out, m)
		case "tool":
			for _, tr := range msg.ToolResults {
				out = append(out, openaisdk.ChatCompletionMessage{
					Role:       openaisdk.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
		default:
			out = append(out, openaisdk.ChatCompletionMessage{Role: openaisdk.ChatMessageRoleUser, Content: msg.Content})
		}
	}
	return out, nil
}

func convertTools(tools []llm.Tool) []openaisdk.Tool {
	out := make([]openaisdk.Tool, len(tools))
	for i, t := range tools {
		var schema map[string]any
		if err := json.Unmarshal(t.Schema, &schema); err != nil || schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = openaisdk.Tool{
			Type: openaisdk.ToolTypeFunction,
			Function: &openaisdk.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		}
	}
	return out
}

func toResponse(result openaisdk.ChatCompletionResponse) llm.Response {
	resp := llm.Response{
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
	}
	if len(result.Choices) == 0 {
		return resp
	}
	choice := result.Choices[0]
	resp.Text = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	return resp
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "connection reset", "connection refused"} {
		if strings.Contains(strings.ToLower(msg), needle) {
			return true
		}
	}
	return false
}

func wrapError(err error, model string) error {
	reason := llm.ReasonUnknown
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		reason = llm.ReasonRateLimited
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		reason = llm.ReasonServerError
	case strings.Contains(msg, "timeout"):
		reason = llm.ReasonTimeout
	case strings.Contains(msg, "connection"):
		reason = llm.ReasonConnection
	}
	return &llm.ProviderError{Provider: "openai", Model: model, Reason: reason, Cause: err}
}
