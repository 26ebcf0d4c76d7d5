// Package dispatcher implements the turn state machine (spec §4.7, C7):
// retrieve memories, assemble the prompt, call the LLM, run the bounded
// tool loop, persist the turn, and update session history. Grounded on
// the teacher's internal/agent/loop.go (AgenticLoop) — the iterate-until-
// no-more-tool-calls shape and the max-iteration guard carry over; the
// parallel tool executor, job queue, and approval-policy machinery are
// dropped since the spec's tool loop is strictly sequential within a turn
// and confirmation policy is explicitly out of C7's contract.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/internal/session"
	"github.com/triadhq/assistant/pkg/models"
)

// DefaultMaxToolLoopIterations is N_max from spec §4.7 step 5.
const DefaultMaxToolLoopIterations = 5

// Config configures a Coordinator.
type Config struct {
	// SystemPrompt is the configured base prompt, concatenated with the
	// rendered capability description before each LLM call.
	SystemPrompt string

	// MaxToolLoopIterations is N_max. DefaultMaxToolLoopIterations if <= 0.
	MaxToolLoopIterations int

	// DefaultModel is passed through to the LLM provider's Request.Model
	// when non-empty; an empty value lets the provider pick its own default.
	DefaultModel string

	// MaxTokens bounds each LLM call. 0 lets the provider pick its default.
	MaxTokens int

	// SessionTTL is the expiry extended on a session at the end of a turn.
	// 0 disables expiry.
	SessionTTL time.Duration

	// Registerer receives the dispatcher's Prometheus counters. The default
	// Prometheus registry is used when nil.
	Registerer prometheus.Registerer
}

// Coordinator drives one turn at a time end to end. A single Coordinator is
// safe for concurrent HandleQuery calls across different sessions; within
// one session the caller is responsible for serializing calls (the spec
// makes no concurrent-same-session guarantee).
type Coordinator struct {
	cfg      Config
	logger   *slog.Logger
	memory   MemoryClient
	tools    ToolClient
	provider llm.Provider
	sessions session.Store
	metrics  *metrics
}

// New builds a Coordinator. logger defaults to slog.Default() when nil.
func New(cfg Config, logger *slog.Logger, memory MemoryClient, tools ToolClient, provider llm.Provider, sessions session.Store) *Coordinator {
	if cfg.MaxToolLoopIterations <= 0 {
		cfg.MaxToolLoopIterations = DefaultMaxToolLoopIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	reg := cfg.Registerer
	if reg == nil {
		// A private registry by default so multiple Coordinators (as in
		// tests) never collide on the same collector name; daemon mains
		// that want these on the process-wide /metrics endpoint pass
		// prometheus.DefaultRegisterer explicitly.
		reg = prometheus.NewRegistry()
	}
	m := newMetrics(reg)
	return &Coordinator{
		cfg:      cfg,
		logger:   logger.With("component", "dispatcher"),
		memory:   memory,
		tools:    tools,
		provider: provider,
		sessions: sessions,
		metrics:  m,
	}
}

// HandleQuery runs one full turn for query against sessionID (created if
// empty or absent) and returns the final response text and the resolved
// session ID.
func (c *Coordinator) HandleQuery(ctx context.Context, query, sessionID string) (response string, resolvedSessionID string, err error) {
	sess, err := c.resolveSession(ctx, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("dispatcher: resolve session: %w", err)
	}

	c.transition(StateRetrieving, sess.ID)
	memories := c.retrieveMemories(ctx, query)

	c.transition(StatePrompting, sess.ID)
	oldTurns, err := session.LoadHistory(sess)
	if err != nil {
		return "", "", fmt.Errorf("dispatcher: load history: %w", err)
	}
	caps := c.fetchCapabilities(ctx)
	tools := capabilitiesToLLMTools(caps)
	systemPrompt := c.cfg.SystemPrompt + renderCapabilities(caps)

	userText := query
	if block := formatMemoryBlock(memories); block != "" {
		userText = block + "\n" + query
	}
	newGroups := [][]models.TurnPart{{models.TextPart(models.RoleUser, userText)}}

	messages := append(partsToMessages(session.FlattenHistory(oldTurns)), llm.Message{Role: "user", Content: userText})

	c.transition(StateLLMCalling, sess.ID)
	resp, err := c.provider.Complete(ctx, llm.Request{
		Model:     c.cfg.DefaultModel,
		System:    systemPrompt,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		c.metrics.turnsFailed.Inc()
		return "", "", fmt.Errorf("dispatcher: llm call: %w", err)
	}
	modelGroup := modelTurnParts(resp)
	newGroups = append(newGroups, modelGroup)
	finalText := resp.Text

	c.transition(StateToolLooping, sess.ID)
	loopLimited := false
	for iter := 0; len(resp.ToolCalls) > 0; iter++ {
		if iter >= c.cfg.MaxToolLoopIterations {
			loopLimited = true
			break
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Text, ToolCalls: resp.ToolCalls})

		responseParts := make([]models.TurnPart, 0, len(resp.ToolCalls))
		toolResults := make([]models.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			c.metrics.toolCallsTotal.Inc()
			result, callErr := c.invokeTool(ctx, call)
			if callErr != nil {
				result = json.RawMessage(fmt.Sprintf(`{"error": %q}`, callErr.Error()))
			}
			responseParts = append(responseParts, models.ResponsePart(call.Name, result))
			toolResults = append(toolResults, models.ToolResult{ToolCallID: call.ID, Content: string(result), IsError: callErr != nil})
		}
		newGroups = append(newGroups, responseParts)

		messages = append(messages, llm.Message{Role: "tool", ToolResults: toolResults})

		resp, err = c.provider.Complete(ctx, llm.Request{
			Model:     c.cfg.DefaultModel,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     tools,
			MaxTokens: c.cfg.MaxTokens,
		})
		if err != nil {
			c.metrics.turnsFailed.Inc()
			return "", "", fmt.Errorf("dispatcher: llm call (tool loop): %w", err)
		}
		modelGroup = modelTurnParts(resp)
		newGroups = append(newGroups, modelGroup)
		finalText = resp.Text
	}

	c.transition(StateResponding, sess.ID)
	if loopLimited {
		finalText += "\n\n[warning: tool loop limit reached before the model stopped requesting tools]"
		c.logger.Warn("tool loop limit reached", "session_id", sess.ID, "limit", c.cfg.MaxToolLoopIterations)
	}

	c.transition(StatePersisting, sess.ID)
	c.persistTurnAsync(query, memories, finalText, newGroups)
	if err := c.updateSession(ctx, sess, newGroups); err != nil {
		return "", "", fmt.Errorf("dispatcher: update session: %w", err)
	}

	c.transition(StateIdle, sess.ID)
	c.metrics.turnsTotal.Inc()
	return finalText, sess.ID, nil
}

func (c *Coordinator) resolveSession(ctx context.Context, id string) (*models.Session, error) {
	if id != "" {
		sess, err := c.sessions.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if err != session.ErrNotFound {
			return nil, err
		}
	}
	return c.sessions.Create(ctx, id)
}

func (c *Coordinator) retrieveMemories(ctx context.Context, query string) []models.ScoredMemoryItem {
	memories, err := c.memory.GetMemories(ctx, query, "")
	if err != nil {
		c.logger.Warn("memory retrieval failed, continuing in degraded mode", "error", err)
		return nil
	}
	return memories
}

func (c *Coordinator) fetchCapabilities(ctx context.Context) []models.Capability {
	caps, err := c.tools.GetCapabilities(ctx)
	if err != nil {
		c.logger.Warn("capability fetch failed, continuing with no tools", "error", err)
		return nil
	}
	return caps
}

func (c *Coordinator) invokeTool(ctx context.Context, call models.ToolCall) (json.RawMessage, error) {
	server, tool, heuristic := resolveToolCall(call.Name)
	if heuristic {
		c.logger.Warn("tool name had no namespace separator, used heuristic default server", "name", call.Name, "resolved_server", server)
	}
	if server == "" {
		return nil, fmt.Errorf("dispatcher: could not resolve a server for tool %q", call.Name)
	}
	return c.tools.ExecuteTool(ctx, server, tool, call.Input)
}

func (c *Coordinator) persistTurnAsync(query string, memories []models.ScoredMemoryItem, finalText string, newGroups [][]models.TurnPart) {
	items := make([]models.MemoryItem, 0, len(memories))
	for _, m := range memories {
		items = append(items, m.Item)
	}
	turn := models.ConversationTurn{
		UserQuery:         query,
		RetrievedMemories: items,
		Response:          finalText,
		Parts:             session.FlattenHistory(newGroups),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.memory.StoreTurn(ctx, turn); err != nil {
			c.logger.Warn("store turn failed", "error", err)
		}
	}()
}

func (c *Coordinator) updateSession(ctx context.Context, sess *models.Session, newGroups [][]models.TurnPart) error {
	if err := session.AppendHistory(sess, session.FlattenHistory(newGroups)); err != nil {
		return err
	}
	if c.cfg.SessionTTL > 0 {
		session.ExtendExpiry(sess, c.cfg.SessionTTL, time.Now())
	}
	return c.sessions.Save(ctx, sess)
}

func (c *Coordinator) transition(s State, sessionID string) {
	c.logger.Debug("state transition", "state", string(s), "session_id", sessionID)
}

func modelTurnParts(resp llm.Response) []models.TurnPart {
	var parts []models.TurnPart
	if resp.Text != "" {
		parts = append(parts, models.TextPart(models.RoleModel, resp.Text))
	}
	for _, call := range resp.ToolCalls {
		parts = append(parts, models.CallPart(call.Name, call.Input))
	}
	return parts
}
