package wire

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadhq/assistant/internal/dispatcher"
	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/internal/session"
	"github.com/triadhq/assistant/pkg/models"
)

type fakeMemory struct{}

func (fakeMemory) GetMemories(ctx context.Context, query, conversationContext string) ([]models.ScoredMemoryItem, error) {
	return nil, nil
}
func (fakeMemory) StoreTurn(ctx context.Context, turn models.ConversationTurn) error { return nil }

type fakeTools struct{}

func (fakeTools) GetCapabilities(ctx context.Context) ([]models.Capability, error) { return nil, nil }
func (fakeTools) ExecuteTool(ctx context.Context, server, tool string, args json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

type fakeProvider struct{ text string }

func (f fakeProvider) Name() string        { return "fake" }
func (f fakeProvider) Models() []llm.Model { return nil }
func (f fakeProvider) SupportsTools() bool { return true }
func (f fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: f.text}, nil
}

func startTestServer(t *testing.T) (string, session.Store) {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "dispatcher.sock")

	sessions := session.NewMemoryStore()
	coord := dispatcher.New(dispatcher.Config{SystemPrompt: "test"}, nil, fakeMemory{}, fakeTools{}, fakeProvider{text: "hi there"}, sessions)
	srv := New(coord, sessions, nil)

	ready := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		l, err := net.Listen("unix", socketPath)
		require.NoError(t, err)
		close(ready)
		srv.listener = l
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go srv.handle(ctx, conn)
		}
	}()
	<-ready
	t.Cleanup(func() { srv.Close() })
	return socketPath, sessions
}

func dial(t *testing.T, socketPath string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	return conn
}

func TestPingReturnsEmptyResponseNoError(t *testing.T) {
	socketPath, _ := startTestServer(t)
	codec := newCodec()

	conn := dial(t, socketPath)
	defer conn.Close()
	require.NoError(t, codec.WriteJSON(conn, Request{Query: PingQuery}))

	var resp Response
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Empty(t, resp.Response)
	assert.Empty(t, resp.Error)
	assert.NotEmpty(t, resp.SessionID)
}

func TestListSessionsReturnsJSONEncodedList(t *testing.T) {
	socketPath, sessions := startTestServer(t)
	ctx := context.Background()
	_, err := sessions.Create(ctx, "s1")
	require.NoError(t, err)
	_, err = sessions.Create(ctx, "s2")
	require.NoError(t, err)

	codec := newCodec()
	conn := dial(t, socketPath)
	defer conn.Close()
	require.NoError(t, codec.WriteJSON(conn, Request{Query: ListSessionsQuery, SessionID: "s1"}))

	var resp Response
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, "s1", resp.SessionID)

	var ids []string
	require.NoError(t, json.Unmarshal([]byte(resp.Response), &ids))
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}

func TestQueryDrivesDispatcher(t *testing.T) {
	socketPath, _ := startTestServer(t)
	codec := newCodec()

	conn := dial(t, socketPath)
	defer conn.Close()
	require.NoError(t, codec.WriteJSON(conn, Request{Query: "hello"}))

	var resp Response
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, "hi there", resp.Response)
	assert.Empty(t, resp.Error)
	assert.NotEmpty(t, resp.SessionID)
}

func TestQueryReusesSuppliedSessionID(t *testing.T) {
	socketPath, sessions := startTestServer(t)
	_, err := sessions.Create(context.Background(), "existing")
	require.NoError(t, err)

	codec := newCodec()
	conn := dial(t, socketPath)
	defer conn.Close()
	require.NoError(t, codec.WriteJSON(conn, Request{Query: "hello", SessionID: "existing"}))

	var resp Response
	require.NoError(t, codec.ReadJSON(conn, &resp))
	assert.Equal(t, "existing", resp.SessionID)
}
