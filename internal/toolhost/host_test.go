package toolhost

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadhq/assistant/internal/memstore"
)

func TestGetAllCapabilitiesIncludesMemoryVirtualTools(t *testing.T) {
	h := New(nil)
	h.SetMemoryStore(memstore.NewMemoryStore())

	caps := h.GetAllCapabilities()
	require.Len(t, caps, len(memoryVirtualTools))
	for _, c := range caps {
		assert.Contains(t, c.Name, MemoryServerName+"/")
	}
}

func TestExecuteToolRoutesMemoryStoreCalls(t *testing.T) {
	h := New(nil)
	store := memstore.NewMemoryStore()
	h.SetMemoryStore(store)
	ctx := context.Background()

	args, _ := json.Marshal(map[string]any{"key": "k1", "value": "hello", "tags": []string{"a"}})
	result, err := h.ExecuteTool(ctx, MemoryServerName, "store_memory", args)
	require.NoError(t, err)
	assert.Contains(t, string(result), "true")

	getArgs, _ := json.Marshal(map[string]string{"key": "k1"})
	result, err = h.ExecuteTool(ctx, MemoryServerName, "retrieve_memory_by_key", getArgs)
	require.NoError(t, err)
	assert.Contains(t, string(result), "hello")
}

func TestExecuteToolUnknownServerFails(t *testing.T) {
	h := New(nil)
	_, err := h.ExecuteTool(context.Background(), "nope", "anything", nil)
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestExecuteToolUnknownMemoryToolFails(t *testing.T) {
	h := New(nil)
	h.SetMemoryStore(memstore.NewMemoryStore())
	_, err := h.ExecuteTool(context.Background(), MemoryServerName, "not_a_tool", nil)
	assert.ErrorIs(t, err, ErrToolNotAdvertised)
}

func TestResolveDefaultServerHeuristics(t *testing.T) {
	cases := []struct {
		name   string
		server string
		ok     bool
	}{
		{"execute_shell", "command", true},
		{"read_file_contents", "filesystem", true},
		{"list_directory", "filesystem", true},
		{"store_memory", MemoryServerName, true},
		{"unrelated_function", "", false},
	}
	for _, tc := range cases {
		server, ok := ResolveDefaultServer(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.server, server, tc.name)
	}
}
