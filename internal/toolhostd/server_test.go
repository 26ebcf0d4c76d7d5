package toolhostd

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadhq/assistant/internal/frame"
	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/internal/toolhost"
	"github.com/triadhq/assistant/internal/wireproto"
	"github.com/triadhq/assistant/pkg/models"
)

func startServer(t *testing.T, host *toolhost.Host) (string, *frame.Codec) {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "toolhost.sock")

	srv := New(host, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ready := make(chan struct{})
	go func() {
		l, err := net.Listen("unix", socketPath)
		require.NoError(t, err)
		srv.listener = l
		close(ready)
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go srv.handleConn(ctx, conn)
		}
	}()
	<-ready
	t.Cleanup(func() { srv.Close() })
	return socketPath, frame.NewCodec(frame.BigEndian, frame.DefaultCap)
}

func TestGetCapabilitiesReturnsMemoryVirtualTools(t *testing.T) {
	host := toolhost.New(nil)
	host.SetMemoryStore(memstore.NewMemoryStore())
	socketPath, codec := startServer(t, host)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, codec.WriteJSON(conn, wireproto.ToolHostRequest{Type: wireproto.TagGetCapabilities}))
	var resp wireproto.ToolHostResponse
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, wireproto.StatusSuccess, resp.Status)

	var caps []models.Capability
	require.NoError(t, json.Unmarshal(resp.Capabilities, &caps))
	assert.NotEmpty(t, caps)
}

func TestExecuteToolRoundTripsOverSocket(t *testing.T) {
	host := toolhost.New(nil)
	store := memstore.NewMemoryStore()
	host.SetMemoryStore(store)
	socketPath, codec := startServer(t, host)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	args, _ := json.Marshal(map[string]any{"key": "k1", "value": "v1"})
	require.NoError(t, codec.WriteJSON(conn, wireproto.ToolHostRequest{
		Type:   wireproto.TagExecuteTool,
		Server: toolhost.MemoryServerName,
		Tool:   "store_memory",
		Args:   args,
	}))
	var resp wireproto.ToolHostResponse
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, wireproto.StatusSuccess, resp.Status)

	item, err := store.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", item.Value)
}

func TestExecuteToolUnknownServerReturnsErrorEnvelope(t *testing.T) {
	host := toolhost.New(nil)
	socketPath, codec := startServer(t, host)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, codec.WriteJSON(conn, wireproto.ToolHostRequest{
		Type: wireproto.TagExecuteTool, Server: "nope", Tool: "x",
	}))
	var resp wireproto.ToolHostResponse
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, wireproto.StatusError, resp.Status)
	assert.NotEmpty(t, resp.Message)
}

func TestGenerateEmbeddingUsesConfiguredEmbedder(t *testing.T) {
	host := toolhost.New(nil)
	host.SetEmbedder(memstore.HashEmbedder{Dim: 8})
	socketPath, codec := startServer(t, host)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, codec.WriteJSON(conn, wireproto.ToolHostRequest{
		Type: wireproto.TagGenerateEmbedding, Text: "hello world",
	}))
	var resp wireproto.ToolHostResponse
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, wireproto.StatusSuccess, resp.Status)
	assert.Len(t, resp.Embedding, 8)
}
