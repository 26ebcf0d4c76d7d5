package childproc

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config describes how to launch a supervised child tool-server process.
// Grounded on the teacher's mcp.ServerConfig (internal/mcp/types.go),
// trimmed to the stdio transport the spec requires (C4 §4.4); the HTTP/SSE
// transport variant the spec mentions as an open alternative is left for a
// future transport, not implemented here.
type Config struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	WorkDir string

	// InitTimeout bounds the initialize handshake. Defaults to 10s (spec §4.4).
	InitTimeout time.Duration
	// ToolTimeout bounds execute_tool calls. Defaults to 60s.
	ToolTimeout time.Duration
	// ResourceTimeout bounds get_resource calls. Defaults to 30s.
	ResourceTimeout time.Duration
	// ShutdownGrace is how long to wait after shutdown+exit before killing
	// the process outright. Defaults to 100ms.
	ShutdownGrace time.Duration
	// StdinQueueDepth bounds the stdin writer's channel. Defaults to 64.
	StdinQueueDepth int
}

const (
	defaultInitTimeout     = 10 * time.Second
	defaultToolTimeout     = 60 * time.Second
	defaultResourceTimeout = 30 * time.Second
	defaultShutdownGrace   = 100 * time.Millisecond
	defaultStdinQueueDepth = 64
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.InitTimeout <= 0 {
		out.InitTimeout = defaultInitTimeout
	}
	if out.ToolTimeout <= 0 {
		out.ToolTimeout = defaultToolTimeout
	}
	if out.ResourceTimeout <= 0 {
		out.ResourceTimeout = defaultResourceTimeout
	}
	if out.ShutdownGrace <= 0 {
		out.ShutdownGrace = defaultShutdownGrace
	}
	if out.StdinQueueDepth <= 0 {
		out.StdinQueueDepth = defaultStdinQueueDepth
	}
	return out
}

// Validate checks the configuration for obvious misconfiguration and
// command-injection-shaped arguments before a process is ever spawned.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("childproc: name is required")
	}
	if c.Command == "" {
		return fmt.Errorf("childproc: command is required")
	}
	if err := validatePath(c.Command, "command"); err != nil {
		return fmt.Errorf("childproc: %s: %w", c.Name, err)
	}
	if c.WorkDir != "" {
		if err := validatePath(c.WorkDir, "workdir"); err != nil {
			return fmt.Errorf("childproc: %s: %w", c.Name, err)
		}
	}
	for i, arg := range c.Args {
		if containsShellMetachars(arg) {
			return fmt.Errorf("childproc: %s: arg[%d] contains suspicious shell metacharacters: %q", c.Name, i, arg)
		}
	}
	return nil
}

func validatePath(path, field string) error {
	if path == "" {
		return nil
	}
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("%s contains path traversal: %q", field, path)
	}
	return nil
}

func containsShellMetachars(s string) bool {
	for _, pattern := range []string{"$(", "${", "`", "&&", "||", ";", "|", ">", "<", "\n", "\r"} {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
