// Package agentwire implements dispatcher.MemoryClient over the
// dispatcher↔memory agent Unix socket: one fresh connection per call,
// 4-byte big-endian length-prefixed JSON frames (spec §4.7 steps 1 and 7,
// §6). Grounded on the teacher's internal/mcp/transport_stdio.go framing
// idiom generalized from stdio to a dialed net.Conn, and on
// internal/frame.Codec built earlier in this repo for exactly this wire
// format.
package agentwire

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/triadhq/assistant/internal/frame"
	"github.com/triadhq/assistant/internal/wireproto"
	"github.com/triadhq/assistant/pkg/models"
)

// Client dials the memory agent's Unix socket fresh for every call, per
// spec's "open a fresh connection to C6" instruction.
type Client struct {
	socketPath string
	codec      *frame.Codec
	dialTimeout time.Duration
}

// New builds a Client for the memory agent listening at socketPath.
func New(socketPath string) *Client {
	return &Client{
		socketPath:  socketPath,
		codec:       frame.NewCodec(frame.BigEndian, frame.DefaultCap),
		dialTimeout: 5 * time.Second,
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("agentwire: dial: %w", err)
	}
	return conn, nil
}

// GetMemories implements dispatcher.MemoryClient.
func (c *Client) GetMemories(ctx context.Context, query, conversationContext string) ([]models.ScoredMemoryItem, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := wireproto.GetMemoriesRequest{
		Type:                wireproto.TagGetMemoriesRequest,
		Query:               query,
		ConversationContext: conversationContext,
	}
	if err := c.codec.WriteJSON(conn, req); err != nil {
		return nil, fmt.Errorf("agentwire: write get_memories_request: %w", err)
	}

	var resp wireproto.GetMemoriesResponse
	if err := c.codec.ReadJSON(conn, &resp); err != nil {
		return nil, fmt.Errorf("agentwire: read get_memories_response: %w", err)
	}

	out := make([]models.ScoredMemoryItem, 0, len(resp.Memories))
	for _, m := range resp.Memories {
		item := models.MemoryItem{Value: m.Content, Source: m.Source}
		if m.Timestamp != nil {
			item.Timestamp = *m.Timestamp
		}
		score := 0.0
		if m.Score != nil {
			score = *m.Score
		}
		out = append(out, models.ScoredMemoryItem{Item: item, Score: score})
	}
	return out, nil
}

// StoreTurn implements dispatcher.MemoryClient. Fire-and-forget: the
// memory agent closes the connection without replying, so the write error
// (if any) is the only thing reported back to the caller.
func (c *Client) StoreTurn(ctx context.Context, turn models.ConversationTurn) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	memories := make([]wireproto.MemoryWireItem, 0, len(turn.RetrievedMemories))
	for _, m := range turn.RetrievedMemories {
		ts := m.Timestamp
		memories = append(memories, wireproto.MemoryWireItem{Content: m.Value, Source: m.Source, Timestamp: &ts})
	}
	parts, err := json.Marshal(turn.Parts)
	if err != nil {
		return fmt.Errorf("agentwire: marshal turn parts: %w", err)
	}

	req := wireproto.StoreTurnRequest{
		Type: wireproto.TagStoreTurnRequest,
		TurnData: wireproto.TurnData{
			UserQuery:         turn.UserQuery,
			RetrievedMemories: memories,
			LLMResponse:       turn.Response,
			TurnParts:         parts,
		},
	}
	if err := c.codec.WriteJSON(conn, req); err != nil {
		return fmt.Errorf("agentwire: write store_turn_request: %w", err)
	}
	return nil
}
