package models

import "encoding/json"

// Capability is an advertised tool or resource. Name is in aggregated
// "<server>/<name>" form once it has passed through the tool host (spec
// §3, §4.5).
type Capability struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Kind        CapabilityKind  `json:"kind"`
}

// CapabilityKind distinguishes a tool from a resource.
type CapabilityKind string

const (
	CapabilityTool     CapabilityKind = "tool"
	CapabilityResource CapabilityKind = "resource"
)

// DotName returns the LLM-facing form of the capability name, with "/"
// replaced by "." (spec §4.5 name translation).
func DotName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			out[i] = '.'
		} else {
			out[i] = name[i]
		}
	}
	return string(out)
}

// SlashName reverses DotName, translating "." back to "/" before routing.
func SlashName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			out[i] = '/'
		} else {
			out[i] = name[i]
		}
	}
	return string(out)
}
