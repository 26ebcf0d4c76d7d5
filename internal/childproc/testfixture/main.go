// Command testfixture is a minimal Content-Length-framed JSON-RPC tool
// server used only by internal/childproc and internal/toolhost tests. It
// is not a product surface — the spec explicitly excludes tool-server
// business logic (spec §1 scope) from this repo; this exists solely to
// give the supervisor and tool host something real to spawn and speak to
// in tests instead of mocking the subprocess boundary away.
package main

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/triadhq/assistant/internal/frame"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func main() {
	reader := bufio.NewReader(os.Stdin)
	for {
		raw, err := frame.ReadMessage(reader)
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			continue
		}
		if req.ID == nil {
			if req.Method == "exit" {
				return
			}
			continue
		}

		var resp response
		resp.JSONRPC = "2.0"
		resp.ID = req.ID

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
				resp.Error = &rpcError{Code: -32002, Message: "unknown tool: " + params.Name}
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
			resp.Error = &rpcError{Code: -32601, Message: "method not found: " + req.Method}
		}

		_ = frame.WriteMessage(os.Stdout, resp)
	}
}
