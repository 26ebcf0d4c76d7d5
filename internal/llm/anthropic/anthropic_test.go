package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/pkg/models"
)

func TestConvertMessagesSkipsSystemRole(t *testing.T) {
	msgs := []llm.Message{
		{Role: "system", Content: "ignored"},
		{Role: "user", Content: "hello"},
	}
	out, err := convertMessages(msgs)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestConvertMessagesRejectsInvalidToolCallInput(t *testing.T) {
	msgs := []llm.Message{
		{Role: "assistant", ToolCalls: []models.ToolCall{{ID: "1", Name: "x", Input: json.RawMessage("not json")}}},
	}
	_, err := convertMessages(msgs)
	assert.Error(t, err)
}

func TestConvertToolsSetsDescription(t *testing.T) {
	tools := []llm.Tool{
		{Name: "search", Description: "searches the web", Schema: json.RawMessage(`{"type":"object"}`)},
	}
	out, err := convertTools(tools)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfTool)
	assert.Equal(t, "search", out[0].OfTool.Name)
}

func TestNewRejectsEmptyAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(assertErr("429 too many requests")))
	assert.False(t, isRetryableError(assertErr("invalid request")))
}

type stringErr string

func (e stringErr) Error() string { return string(e) }

func assertErr(s string) error { return stringErr(s) }
