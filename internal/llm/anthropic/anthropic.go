// Package anthropic wires github.com/anthropics/anthropic-sdk-go as an
// llm.Provider. Grounded on the teacher's
// internal/agent/providers/anthropic.go — message/tool conversion and
// model metadata carried over near-verbatim, the streaming SSE consumer
// (processStream/createBetaStream/computer-use support) dropped in favor
// of a single non-streaming client.Messages.New call per the collapsed
// synchronous Provider contract (spec's LLM boundary is request/response,
// not token-streamed).
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/internal/retryutil"
	"github.com/triadhq/assistant/pkg/models"
)

// Config configures the Anthropic provider.
type Config struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// Provider implements llm.Provider against the Anthropic Messages API.
type Provider struct {
	client       anthropicsdk.Client
	retrier      retryutil.Retrier
	defaultModel string
}

// New creates an Anthropic-backed Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:       anthropicsdk.NewClient(opts...),
		retrier:      retryutil.New(cfg.MaxRetries, cfg.RetryDelay),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Models() []llm.Model {
	return []llm.Model{
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-haiku-4-20250514", Name: "Claude Haiku 4", ContextSize: 200000, SupportsVision: true},
	}
}

func (p *Provider) SupportsTools() bool { return true }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic: convert messages: %w", err)
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return llm.Response{}, fmt.Errorf("anthropic: convert tools: %w", err)
		}
		params.Tools = tools
	}

	var result *anthropicsdk.Message
	err = p.retrier.Do(ctx, isRetryableError, func() error {
		var callErr error
		result, callErr = p.client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return llm.Response{}, wrapError(err, model)
	}

	return toResponse(result), nil
}

func convertMessages(messages []llm.Message) ([]anthropicsdk.MessageParam, error) {
	var result []anthropicsdk.MessageParam
	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}

		var content []anthropicsdk.ContentBlockParamUnion
		if msg.Content != "" {
			content = append(content, anthropicsdk.NewTextBlock(msg.Content))
		}
		for _, tr := range msg.ToolResults {
			content = append(content, anthropicsdk.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input: %w", err)
				}
			}
			content = append(content, anthropicsdk.NewToolUseBlock(tc.ID, input, tc.Name))
		}

		if msg.Role == "assistant" {
			result = append(result, anthropicsdk.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropicsdk.NewUserMessage(content...))
		}
	}
	return result, nil
}

func convertTools(tools []llm.Tool) ([]anthropicsdk.ToolUnionParam, error) {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropicsdk.ToolInputSchemaParam
		if len(t.Schema) > 0 {
			if err := json.Unmarshal(t.Schema, &schema); err != nil {
				return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
			}
		}
		toolParam := anthropicsdk.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropicsdk.String(t.Description)
		}
		out = append(out, toolParam)
	}
	return out, nil
}

func toResponse(msg *anthropicsdk.Message) llm.Response {
	resp := llm.Response{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			text.WriteString(variant.Text)
		case anthropicsdk.ToolUseBlock:
			input, _ := json.Marshal(variant.Input)
			resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}
	resp.Text = text.String()
	return resp
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{
		"rate_limit", "429", "too many requests",
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func wrapError(err error, model string) error {
	reason := llm.ReasonUnknown
	msg := err.Error()
	switch {
	case strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429"):
		reason = llm.ReasonRateLimited
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		reason = llm.ReasonServerError
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		reason = llm.ReasonTimeout
	case strings.Contains(msg, "connection"):
		reason = llm.ReasonConnection
	}
	return &llm.ProviderError{Provider: "anthropic", Model: model, Reason: reason, Cause: err}
}
