// Package wireproto defines the tagged JSON message shapes exchanged over
// the two inter-daemon Unix sockets (dispatcher↔memory agent,
// dispatcher↔tool host), both framed big-endian length-prefixed JSON via
// internal/frame (spec §6, §9). Shared between the client packages
// (internal/dispatcher/agentwire, internal/dispatcher/hostwire) and the
// corresponding daemon servers so the two sides never drift.
package wireproto

import "encoding/json"

// Memory agent (C6) message tags.
const (
	TagGetMemoriesRequest  = "get_memories_request"
	TagGetMemoriesResponse = "get_memories_response"
	TagStoreTurnRequest    = "store_turn_request"
)

// Envelope carries the type discriminator common to every memory-agent
// message; callers decode into Envelope first, then re-decode the same
// bytes into the tag-specific struct.
type Envelope struct {
	Type string `json:"type"`
}

// GetMemoriesRequest asks the memory agent for memories relevant to query.
type GetMemoriesRequest struct {
	Type               string `json:"type"`
	Query              string `json:"query"`
	ConversationContext string `json:"conversation_context,omitempty"`
}

// MemoryWireItem is the reduced memory shape the memory agent returns to
// the dispatcher (spec §6): content/source/timestamp/score, not the full
// MemoryItem record.
type MemoryWireItem struct {
	Content   string   `json:"content"`
	Source    string   `json:"source,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

// GetMemoriesResponse answers a GetMemoriesRequest.
type GetMemoriesResponse struct {
	Type     string           `json:"type"`
	Memories []MemoryWireItem `json:"memories"`
}

// TurnData is the payload of a StoreTurnRequest.
type TurnData struct {
	UserQuery         string          `json:"user_query"`
	RetrievedMemories []MemoryWireItem `json:"retrieved_memories,omitempty"`
	LLMResponse       string          `json:"llm_response"`
	TurnParts         json.RawMessage `json:"turn_parts,omitempty"`
}

// StoreTurnRequest is fire-and-forget: the memory agent does not reply.
type StoreTurnRequest struct {
	Type     string   `json:"type"`
	TurnData TurnData `json:"turn_data"`
}
