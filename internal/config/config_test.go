package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysOntoDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triad.toml")
	contents := `
[dispatcher]
system_prompt = "custom prompt"
max_tool_loop_iterations = 3

[llm]
provider = "openai"

[llm.openai]
api_key = "sk-test"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom prompt", cfg.Dispatcher.SystemPrompt)
	assert.Equal(t, 3, cfg.Dispatcher.MaxToolLoopIterations)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	// Untouched defaults survive the overlay.
	assert.Equal(t, 3600, cfg.Dispatcher.HTTPSessionTTLSeconds)
	assert.Equal(t, "memory", cfg.Memory.Backend)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestResolveSocketPathPrecedence(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		assert.Equal(t, "/explicit/path.sock", ResolveSocketPath("/explicit/path.sock", DispatcherSocketName))
	})

	t.Run("runtime dir env var", func(t *testing.T) {
		t.Setenv(RuntimeDirEnvVar, "/run/triad")
		assert.Equal(t, "/run/triad/"+DispatcherSocketName, ResolveSocketPath("", DispatcherSocketName))
	})

	t.Run("xdg runtime dir fallback", func(t *testing.T) {
		t.Setenv(RuntimeDirEnvVar, "")
		t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
		assert.Equal(t, "/run/user/1000/"+DispatcherSocketName, ResolveSocketPath("", DispatcherSocketName))
	})

	t.Run("falls back to tmp", func(t *testing.T) {
		t.Setenv(RuntimeDirEnvVar, "")
		t.Setenv("XDG_RUNTIME_DIR", "")
		assert.Equal(t, "/tmp/"+DispatcherSocketName, ResolveSocketPath("", DispatcherSocketName))
	})
}

func TestLoadToolServers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_servers.json")
	contents := `{"mcpServers": {"filesystem": {"command": "fs-server", "args": ["--root", "/tmp"]}, "disabled-one": {"command": "x", "enabled": false}}}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	list, err := LoadToolServers(path)
	require.NoError(t, err)
	require.Contains(t, list.Servers, "filesystem")
	assert.Equal(t, "fs-server", list.Servers["filesystem"].Command)
	assert.True(t, list.Servers["filesystem"].IsEnabled())
	assert.False(t, list.Servers["disabled-one"].IsEnabled())
}
