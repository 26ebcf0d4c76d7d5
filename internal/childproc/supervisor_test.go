package childproc

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadhq/assistant/internal/frame"
)

// TestMain lets this test binary double as the child tool-server process it
// spawns: when re-invoked with helperProcessEnv set it runs helperProcess
// instead of the test suite. This is the standard pattern Go's own
// os/exec tests use for exercising real subprocess I/O without needing a
// separately built fixture binary.
const helperProcessEnv = "TRIAD_CHILDPROC_HELPER"

func TestMain(m *testing.M) {
	if os.Getenv(helperProcessEnv) == "1" {
		helperProcess()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Name:        "fixture",
		Command:     os.Args[0],
		Args:        []string{"-test.run=TestMain"},
		Env:         map[string]string{helperProcessEnv: "1"},
		InitTimeout: 5 * time.Second,
		ToolTimeout: 2 * time.Second,
	}
}

func TestSupervisorLaunchReachesReadyWithCapabilities(t *testing.T) {
	sup, err := New(testConfig(t), slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Launch(ctx))
	defer sup.Shutdown(context.Background())

	assert.Equal(t, Ready, sup.State())
	caps := sup.Capabilities()
	require.Len(t, caps, 2)

	var names []string
	for _, c := range caps {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "echo")
	assert.Contains(t, names, "status")
}

func TestSupervisorExecuteTool(t *testing.T) {
	sup, err := New(testConfig(t), slog.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Launch(ctx))
	defer sup.Shutdown(context.Background())

	result, err := sup.ExecuteTool(ctx, "echo", json.RawMessage(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Contains(t, string(result), "hello")
}

func TestSupervisorExecuteUnknownToolReturnsRPCError(t *testing.T) {
	sup, err := New(testConfig(t), slog.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Launch(ctx))
	defer sup.Shutdown(context.Background())

	_, err = sup.ExecuteTool(ctx, "nope", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestSupervisorGetResource(t *testing.T) {
	sup, err := New(testConfig(t), slog.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Launch(ctx))
	defer sup.Shutdown(context.Background())

	result, err := sup.GetResource(ctx, "status", nil)
	require.NoError(t, err)
	assert.Contains(t, string(result), "ok")
}

func TestSupervisorShutdownTransitionsToExited(t *testing.T) {
	sup, err := New(testConfig(t), slog.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Launch(ctx))

	require.NoError(t, sup.Shutdown(context.Background()))
	assert.Equal(t, Exited, sup.State())
}

func TestConfigValidateRejectsShellMetacharacters(t *testing.T) {
	cfg := Config{Name: "x", Command: "/bin/sh", Args: []string{"-c", "rm -rf / ; echo pwned"}}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestConfigValidateRejectsPathTraversal(t *testing.T) {
	cfg := Config{Name: "x", Command: "../../etc/passwd"}
	err := cfg.Validate()
	assert.Error(t, err)
}

// helperProcess implements the same Content-Length-framed JSON-RPC contract
// as testfixture/main.go (kept separately as a standalone reference
// binary), inline in this test binary so the supervisor has a real child
// to speak to without a prebuilt fixture executable.
func helperProcess() {
	reader := bufio.NewReader(os.Stdin)
	for {
		raw, err := frame.ReadMessage(reader)
		if err != nil {
			return
		}
		var req frame.JSONRPCRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			continue
		}
		if req.ID == nil {
			if req.Method == "exit" {
				return
			}
			continue
		}

		resp := frame.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "initialize":
			result, _ := json.Marshal(map[string]any{
				"capabilities": map[string]any{
					"tools": []map[string]any{
						{"name": "echo", "description": "echoes its input", "inputSchema": map[string]any{"type": "object"}},
					},
					"resources": []map[string]any{
						{"name": "status", "description": "fixture status"},
					},
				},
			})
			resp.Result = result
		case "mcp/tool/execute":
			var params struct {
				Name string          `json:"name"`
				Args json.RawMessage `json:"args"`
			}
			_ = json.Unmarshal(req.Params, &params)
			if params.Name != "echo" {
				resp.Error = &frame.JSONRPCError{Code: -32002, Message: "unknown tool: " + params.Name}
			} else {
				result, _ := json.Marshal(map[string]any{"echoed": json.RawMessage(params.Args)})
				resp.Result = result
			}
		case "resource/get":
			result, _ := json.Marshal(map[string]any{"contents": []map[string]string{{"uri": "status", "text": "ok"}}})
			resp.Result = result
		case "shutdown":
			resp.Result = json.RawMessage(`{}`)
		default:
			resp.Error = &frame.JSONRPCError{Code: -32601, Message: "method not found: " + req.Method}
		}

		_ = frame.WriteMessage(os.Stdout, resp)
	}
}
