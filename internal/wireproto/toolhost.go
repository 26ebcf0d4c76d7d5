package wireproto

import "encoding/json"

// Tool host (C5) message tags.
const (
	TagGetCapabilities     = "get_capabilities"
	TagExecuteTool         = "execute_tool"
	TagGenerateEmbedding   = "generate_embedding"
	TagGetBrokerCapabilities = "get_broker_capabilities"
)

// ToolHostRequest is a single tagged request to the tool host. Only the
// fields relevant to Tag are populated.
type ToolHostRequest struct {
	Type         string          `json:"type"`
	Server       string          `json:"server,omitempty"`
	Tool         string          `json:"tool,omitempty"`
	Args         json.RawMessage `json:"args,omitempty"`
	Text         string          `json:"text,omitempty"`
	ModelVariant string          `json:"model_variant,omitempty"`
}

// ToolHostResponse is the status envelope every tool-host reply uses
// (spec §6): exactly one of the success payload fields is populated when
// Status is "success"; Message is populated when Status is "error".
type ToolHostResponse struct {
	Status            string          `json:"status"`
	Capabilities      json.RawMessage `json:"capabilities,omitempty"`
	ExecutionOutput   json.RawMessage `json:"execution_output,omitempty"`
	Embedding         []float64       `json:"embedding,omitempty"`
	BrokerCapabilities json.RawMessage `json:"broker_capabilities,omitempty"`
	Message           string          `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)
