package models

import "encoding/json"

// Role identifies the author of a turn part, mirroring the LLM's content
// roles.
type Role string

const (
	RoleUser     Role = "user"
	RoleModel    Role = "model"
	RoleFunction Role = "function"
)

// FunctionCall is a model-emitted request to invoke a tool.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse carries the result (or error) of a previously requested
// function call, keyed back to it by Name and call order.
type FunctionResponse struct {
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result,omitempty"`
}

// TurnPart is one fragment of a conversation turn. Exactly one of Text,
// FunctionCall, FunctionResponse is populated for a given part.
type TurnPart struct {
	Role             Role              `json:"role"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// TextPart builds a plain text turn part.
func TextPart(role Role, text string) TurnPart {
	return TurnPart{Role: role, Text: text}
}

// CallPart builds a function-call turn part (always role=model).
func CallPart(name string, args json.RawMessage) TurnPart {
	return TurnPart{Role: RoleModel, FunctionCall: &FunctionCall{Name: name, Args: args}}
}

// ResponsePart builds a function-response turn part (always role=function).
func ResponsePart(name string, result json.RawMessage) TurnPart {
	return TurnPart{Role: RoleFunction, FunctionResponse: &FunctionResponse{Name: name, Result: result}}
}

// ConversationTurn is one user-query/assistant-response exchange, possibly
// including tool calls, as defined in spec §3.
type ConversationTurn struct {
	UserQuery         string       `json:"user_query"`
	RetrievedMemories []MemoryItem `json:"retrieved_memories,omitempty"`
	Response          string       `json:"llm_response"`
	Parts             []TurnPart   `json:"turn_parts,omitempty"`
}
