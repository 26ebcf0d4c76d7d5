package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/internal/session"
	"github.com/triadhq/assistant/pkg/models"
)

type fakeMemory struct {
	memories   []models.ScoredMemoryItem
	getErr     error
	stored     []models.ConversationTurn
	storeErr   error
	getCalls   int
	storeCalls int
}

func (f *fakeMemory) GetMemories(ctx context.Context, query, conversationContext string) ([]models.ScoredMemoryItem, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.memories, nil
}

func (f *fakeMemory) StoreTurn(ctx context.Context, turn models.ConversationTurn) error {
	f.storeCalls++
	f.stored = append(f.stored, turn)
	return f.storeErr
}

type fakeTools struct {
	caps       []models.Capability
	capsErr    error
	execFunc   func(server, tool string, args json.RawMessage) (json.RawMessage, error)
	execCalls  int
}

func (f *fakeTools) GetCapabilities(ctx context.Context) ([]models.Capability, error) {
	if f.capsErr != nil {
		return nil, f.capsErr
	}
	return f.caps, nil
}

func (f *fakeTools) ExecuteTool(ctx context.Context, server, tool string, args json.RawMessage) (json.RawMessage, error) {
	f.execCalls++
	if f.execFunc != nil {
		return f.execFunc(server, tool, args)
	}
	return json.RawMessage(`{}`), nil
}

type fakeProvider struct {
	responses []llm.Response
	call      int
	lastReq   llm.Request
}

func (f *fakeProvider) Name() string          { return "fake" }
func (f *fakeProvider) Models() []llm.Model   { return nil }
func (f *fakeProvider) SupportsTools() bool   { return true }
func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.lastReq = req
	if f.call >= len(f.responses) {
		return llm.Response{}, errors.New("no more canned responses")
	}
	r := f.responses[f.call]
	f.call++
	return r, nil
}

func newTestCoordinator(mem *fakeMemory, tools *fakeTools, provider *fakeProvider) *Coordinator {
	return New(Config{SystemPrompt: "you are a test assistant"}, nil, mem, tools, provider, session.NewMemoryStore())
}

// assertToolMessagesPrecededByAssistant checks that every "tool"-role
// message in messages is immediately preceded by an "assistant" message
// whose ToolCalls cover every ToolCallID the tool message carries results
// for — the shape OpenAI/Anthropic require and reject otherwise.
func assertToolMessagesPrecededByAssistant(t *testing.T, messages []llm.Message) {
	t.Helper()
	for i, msg := range messages {
		if msg.Role != "tool" {
			continue
		}
		if !assert.Greater(t, i, 0, "tool message at index %d has no preceding message", i) {
			continue
		}
		prev := messages[i-1]
		if !assert.Equal(t, "assistant", prev.Role, "tool message at index %d not preceded by an assistant message", i) {
			continue
		}
		covered := make(map[string]bool, len(prev.ToolCalls))
		for _, call := range prev.ToolCalls {
			covered[call.ID] = true
		}
		for _, result := range msg.ToolResults {
			assert.True(t, covered[result.ToolCallID], "tool result %q at index %d not covered by preceding assistant ToolCalls", result.ToolCallID, i)
		}
	}
}

func TestHandleQuerySimpleNoTools(t *testing.T) {
	mem := &fakeMemory{}
	tools := &fakeTools{}
	provider := &fakeProvider{responses: []llm.Response{{Text: "hello there"}}}
	c := newTestCoordinator(mem, tools, provider)

	resp, sessionID, err := c.HandleQuery(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, 1, mem.getCalls)
	assert.Equal(t, 1, mem.storeCalls)
}

func TestHandleQueryRunsToolLoop(t *testing.T) {
	mem := &fakeMemory{}
	tools := &fakeTools{
		caps: []models.Capability{{Name: "search/web", Kind: models.CapabilityTool, Description: "search the web"}},
		execFunc: func(server, tool string, args json.RawMessage) (json.RawMessage, error) {
			assert.Equal(t, "search", server)
			assert.Equal(t, "web", tool)
			return json.RawMessage(`{"result":"42"}`), nil
		},
	}
	provider := &fakeProvider{responses: []llm.Response{
		{Text: "", ToolCalls: []models.ToolCall{{ID: "1", Name: "search.web", Input: json.RawMessage(`{"q":"go"}`)}}},
		{Text: "the answer is 42"},
	}}
	c := newTestCoordinator(mem, tools, provider)

	resp, _, err := c.HandleQuery(context.Background(), "what is the answer?", "")
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", resp)
	assert.Equal(t, 1, tools.execCalls)
	assertToolMessagesPrecededByAssistant(t, provider.lastReq.Messages)
}

func TestHandleQueryToolLoopLimitAppendsWarning(t *testing.T) {
	mem := &fakeMemory{}
	tools := &fakeTools{caps: []models.Capability{{Name: "search/web", Kind: models.CapabilityTool}}}
	call := models.ToolCall{ID: "1", Name: "search.web", Input: json.RawMessage(`{}`)}
	responses := make([]llm.Response, DefaultMaxToolLoopIterations+1)
	for i := range responses {
		responses[i] = llm.Response{ToolCalls: []models.ToolCall{call}}
	}
	provider := &fakeProvider{responses: responses}
	c := newTestCoordinator(mem, tools, provider)

	resp, _, err := c.HandleQuery(context.Background(), "loop forever", "")
	require.NoError(t, err)
	assert.Contains(t, resp, "tool loop limit reached")
	assertToolMessagesPrecededByAssistant(t, provider.lastReq.Messages)
}

func TestHandleQueryDegradesOnMemoryFailure(t *testing.T) {
	mem := &fakeMemory{getErr: errors.New("memory agent unreachable")}
	tools := &fakeTools{}
	provider := &fakeProvider{responses: []llm.Response{{Text: "ok without memories"}}}
	c := newTestCoordinator(mem, tools, provider)

	resp, _, err := c.HandleQuery(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "ok without memories", resp)
}

func TestHandleQueryContinuesOnToolExecutionFailure(t *testing.T) {
	mem := &fakeMemory{}
	tools := &fakeTools{
		caps: []models.Capability{{Name: "search/web", Kind: models.CapabilityTool}},
		execFunc: func(server, tool string, args json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("tool exploded")
		},
	}
	provider := &fakeProvider{responses: []llm.Response{
		{ToolCalls: []models.ToolCall{{ID: "1", Name: "search.web"}}},
		{Text: "recovered"},
	}}
	c := newTestCoordinator(mem, tools, provider)

	resp, _, err := c.HandleQuery(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp)
}

func TestHandleQueryReusesExistingSession(t *testing.T) {
	mem := &fakeMemory{}
	tools := &fakeTools{}
	provider := &fakeProvider{responses: []llm.Response{{Text: "first"}, {Text: "second"}}}
	c := newTestCoordinator(mem, tools, provider)

	_, sessionID, err := c.HandleQuery(context.Background(), "hi", "")
	require.NoError(t, err)

	_, sessionID2, err := c.HandleQuery(context.Background(), "again", sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, sessionID2)

	sess, err := c.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	turns, err := session.LoadHistory(sess)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}
