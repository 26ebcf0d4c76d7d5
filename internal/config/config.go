// Package config loads the unified TOML configuration file shared by the
// three daemons and the CLI client (spec §6 persisted-state item (a)).
// Grounded on the teacher's internal/config/config.go struct-of-structs
// shape, Load(path) signature, and field-level defaulting pattern, re-tagged
// from yaml to toml per SPEC_FULL's ambient-stack choice. Config parsing
// depth itself is out of scope per spec Non-goals ("configuration-file
// parsing and CLI flag handling" is an external-boundary concern) — this
// package only provides the struct shapes and a thin loader a daemon main
// needs to get from a file on disk to a runnable Config.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the top-level shape of the unified configuration file.
type Config struct {
	Dispatcher  DispatcherConfig  `toml:"dispatcher"`
	MemoryAgent MemoryAgentConfig `toml:"memory_agent"`
	ToolHost    ToolHostConfig    `toml:"tool_host"`
	LLM         LLMConfig         `toml:"llm"`
	Memory      MemoryConfig      `toml:"memory"`
	Logging     LoggingConfig     `toml:"logging"`
}

// DispatcherConfig configures the dispatcher daemon (C7/C8).
type DispatcherConfig struct {
	// SocketPath is the client↔dispatcher Unix socket (spec §6 tier 1).
	// Empty means resolve via ResolveSocketPath at startup.
	SocketPath string `toml:"socket_path"`
	// HTTPAddr enables the optional HTTP façade (spec §4.8) when non-empty,
	// e.g. "127.0.0.1:8080".
	HTTPAddr string `toml:"http_addr"`
	// HTTPSessionTTLSeconds is the HTTP endpoint's default session expiry,
	// extended on every request (spec §4.8: "one-hour expiry"). 3600 if 0.
	HTTPSessionTTLSeconds int `toml:"http_session_ttl_seconds"`

	SystemPrompt          string `toml:"system_prompt"`
	DefaultModel          string `toml:"default_model"`
	MaxTokens             int    `toml:"max_tokens"`
	MaxToolLoopIterations int    `toml:"max_tool_loop_iterations"`
	// SessionTTLSeconds applied by the coordinator itself after every turn,
	// independent of the HTTP endpoint's own expiry management. 0 disables
	// expiry, matching the Unix endpoint's "no expiry by default" (spec §4.2).
	SessionTTLSeconds int `toml:"session_ttl_seconds"`

	MemoryAgentSocketPath string `toml:"memory_agent_socket_path"`
	ToolHostSocketPath    string `toml:"tool_host_socket_path"`
}

// MemoryAgentConfig configures the memory agent daemon (C6).
type MemoryAgentConfig struct {
	SocketPath string `toml:"socket_path"`
}

// ToolHostConfig configures the tool host daemon (C5).
type ToolHostConfig struct {
	SocketPath string `toml:"socket_path"`
	// ToolServersPath is the tool-server list file (spec §6 persisted-state
	// item (b)), JSON with a top-level "mcpServers" key.
	ToolServersPath string `toml:"tool_servers_path"`
}

// LLMConfig selects and configures the LLM provider the dispatcher calls.
type LLMConfig struct {
	// Provider is "anthropic" or "openai".
	Provider  string          `toml:"provider"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	OpenAI    OpenAIConfig    `toml:"openai"`
}

// AnthropicConfig configures internal/llm/anthropic.
type AnthropicConfig struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	DefaultModel string `toml:"default_model"`
}

// OpenAIConfig configures internal/llm/openai.
type OpenAIConfig struct {
	APIKey       string `toml:"api_key"`
	DefaultModel string `toml:"default_model"`
}

// MemoryConfig selects the memstore.Store backing (spec §6 persisted-state
// item (c)).
type MemoryConfig struct {
	// Backend is "memory", "sqlite", or "postgres".
	Backend         string `toml:"backend"`
	SQLitePath      string `toml:"sqlite_path"`
	PostgresDSN     string `toml:"postgres_dsn"`
	AsyncQueueDepth int    `toml:"async_queue_depth"`
}

// LoggingConfig is decoded from the [logging] table. The daemon mains do
// not read it: they always log JSON to stderr, at debug level with --debug
// and at info level otherwise.
type LoggingConfig struct {
	Level string `toml:"level"`
	// JSON selects slog.NewJSONHandler over slog.NewTextHandler, matching
	// the teacher's production-JSON / dev-text split in cmd/nexus/main.go.
	JSON bool `toml:"json"`
}

// Default returns a Config with the conventional socket paths (resolved via
// ResolveSocketPath) and sensible defaults, used as the base a loaded file
// is merged on top of.
func Default() Config {
	return Config{
		Dispatcher: DispatcherConfig{
			SocketPath:            ResolveSocketPath("", DispatcherSocketName),
			HTTPSessionTTLSeconds: 3600,
			SystemPrompt:          "You are a helpful assistant with access to retrieved memories and tools.",
			MaxToolLoopIterations: 5,
			MemoryAgentSocketPath: ResolveSocketPath("", MemoryAgentSocketName),
			ToolHostSocketPath:    ResolveSocketPath("", ToolHostSocketName),
		},
		MemoryAgent: MemoryAgentConfig{
			SocketPath: ResolveSocketPath("", MemoryAgentSocketName),
		},
		ToolHost: ToolHostConfig{
			SocketPath: ResolveSocketPath("", ToolHostSocketName),
		},
		LLM: LLMConfig{
			Provider: "anthropic",
		},
		Memory: MemoryConfig{
			Backend:         "memory",
			AsyncQueueDepth: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the TOML file at path, overlaying it onto
// Default(). An empty path returns Default() unchanged, since none of the
// three daemons requires a config file to run given explicit flags (spec
// §6: "None is required for the core to function given explicit
// configuration input").
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}
