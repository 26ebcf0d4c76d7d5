package dispatcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/pkg/models"
)

// partsToMessages groups consecutive same-role turn parts into llm.Message
// values. Each group produced by the coordinator during a single turn
// (initial query, one model response, one function-response batch, ...)
// shares a role, so grouping by role run reconstructs the original message
// boundaries from the flattened history (spec §4.7 step 3).
func partsToMessages(parts []models.TurnPart) []llm.Message {
	var out []llm.Message
	var cur *llm.Message

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, p := range parts {
		role := messageRole(p.Role)
		if cur == nil || cur.Role != role {
			flush()
			cur = &llm.Message{Role: role}
		}
		switch {
		case p.FunctionCall != nil:
			cur.ToolCalls = append(cur.ToolCalls, models.ToolCall{
				ID:    p.FunctionCall.Name,
				Name:  p.FunctionCall.Name,
				Input: p.FunctionCall.Args,
			})
		case p.FunctionResponse != nil:
			cur.ToolResults = append(cur.ToolResults, models.ToolResult{
				ToolCallID: p.FunctionResponse.Name,
				Content:    string(p.FunctionResponse.Result),
			})
		default:
			if cur.Content != "" {
				cur.Content += "\n" + p.Text
			} else {
				cur.Content = p.Text
			}
		}
	}
	flush()
	return out
}

func messageRole(r models.Role) string {
	switch r {
	case models.RoleModel:
		return "assistant"
	case models.RoleFunction:
		return "tool"
	default:
		return "user"
	}
}

// formatMemoryBlock renders retrieved memories as a text block prefixed to
// the new user content (spec §4.7 step 3). Empty input yields "".
func formatMemoryBlock(memories []models.ScoredMemoryItem) string {
	if len(memories) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant memories:\n")
	for _, m := range memories {
		source := m.Item.Source
		if source == "" {
			source = "memory"
		}
		fmt.Fprintf(&b, "- %s (source: %s, score: %.2f)\n", m.Item.Value, source, m.Score)
	}
	return b.String()
}

// renderCapabilities formats advertised capabilities, in dotted form, as a
// system-prompt appendix (spec §4.7 step 3: "a rendered capability
// description listing each advertised tool in dotted form").
func renderCapabilities(caps []models.Capability) string {
	if len(caps) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nAvailable tools:\n")
	for _, c := range caps {
		fmt.Fprintf(&b, "- %s: %s\n", models.DotName(c.Name), c.Description)
	}
	return b.String()
}

func capabilitiesToLLMTools(caps []models.Capability) []llm.Tool {
	out := make([]llm.Tool, 0, len(caps))
	for _, c := range caps {
		if c.Kind != models.CapabilityTool {
			continue
		}
		schema := c.Parameters
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, llm.Tool{
			Name:        models.DotName(c.Name),
			Description: c.Description,
			Schema:      schema,
		})
	}
	return out
}
