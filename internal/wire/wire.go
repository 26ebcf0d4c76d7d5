// Package wire implements the client↔dispatcher Unix-socket endpoint
// (spec §4.8, §6, C8): one request per connection, 4-byte little-endian
// length-prefixed JSON frames — the one framing pair in the system that
// does NOT use the inter-daemon big-endian convention (spec §4.1, §9: "Two
// different length-prefix endiannesses coexist; implementations MUST pick
// one per connection pair and document it at the boundary" — documented
// here). Grounded on the teacher's internal/gateway/http_server.go
// request/response shape and internal/mcp/transport_stdio.go's
// per-connection accept loop, generalized to a listened/dialed net.Conn
// pair instead of a child process's stdio pipes.
package wire

import "github.com/triadhq/assistant/internal/frame"

// PingQuery and ListSessionsQuery are the two reserved query strings
// handled directly by the endpoint rather than driving the dispatcher's
// turn state machine (spec §4.8, §8 scenarios).
const (
	PingQuery         = "__PING__"
	ListSessionsQuery = "__LIST_SESSIONS__"
)

// Request is the wire shape of a client query (spec §6).
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the wire shape of the dispatcher's reply (spec §6).
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newCodec() *frame.Codec {
	return frame.NewCodec(frame.LittleEndian, frame.DefaultCap)
}
