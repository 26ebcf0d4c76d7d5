package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ToolServerSpec is one entry in the tool-server list file (spec §6
// persisted-state item (b)).
type ToolServerSpec struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Enabled *bool             `json:"enabled,omitempty"`
}

// IsEnabled reports whether the spec should be launched. Unset defaults to
// enabled.
func (s ToolServerSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ToolServerList is the top-level shape of the tool-server list file,
// keyed "mcpServers" (spec §6).
type ToolServerList struct {
	Servers map[string]ToolServerSpec `json:"mcpServers"`
}

// LoadToolServers reads and parses the tool-server list file at path.
func LoadToolServers(path string) (ToolServerList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ToolServerList{}, fmt.Errorf("config: read tool servers %s: %w", path, err)
	}
	var list ToolServerList
	if err := json.Unmarshal(data, &list); err != nil {
		return ToolServerList{}, fmt.Errorf("config: parse tool servers %s: %w", path, err)
	}
	return list, nil
}
