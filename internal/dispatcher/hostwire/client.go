// Package hostwire implements dispatcher.ToolClient over the
// dispatcher↔tool host Unix socket: 4-byte big-endian length-prefixed
// JSON frames, one request per round trip over a pooled connection (spec
// §6). Grounded the same way as internal/dispatcher/agentwire.
package hostwire

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/triadhq/assistant/internal/frame"
	"github.com/triadhq/assistant/internal/wireproto"
	"github.com/triadhq/assistant/pkg/models"
)

// Client talks to the tool host daemon over a single long-lived connection,
// serializing requests (spec §5: "within a single... connection, responses
// are ordered with respect to requests... one-at-a-time per connection").
type Client struct {
	socketPath string
	codec      *frame.Codec
	dialTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// New builds a Client for the tool host listening at socketPath. The
// connection is dialed lazily on first use.
func New(socketPath string) *Client {
	return &Client{
		socketPath:  socketPath,
		codec:       frame.NewCodec(frame.BigEndian, frame.DefaultCap),
		dialTimeout: 5 * time.Second,
	}
}

func (c *Client) roundTrip(ctx context.Context, req wireproto.ToolHostRequest) (wireproto.ToolHostResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		d := net.Dialer{Timeout: c.dialTimeout}
		conn, err := d.DialContext(ctx, "unix", c.socketPath)
		if err != nil {
			return wireproto.ToolHostResponse{}, fmt.Errorf("hostwire: dial: %w", err)
		}
		c.conn = conn
	}

	if err := c.codec.WriteJSON(c.conn, req); err != nil {
		c.conn.Close()
		c.conn = nil
		return wireproto.ToolHostResponse{}, fmt.Errorf("hostwire: write request: %w", err)
	}

	var resp wireproto.ToolHostResponse
	if err := c.codec.ReadJSON(c.conn, &resp); err != nil {
		c.conn.Close()
		c.conn = nil
		return wireproto.ToolHostResponse{}, fmt.Errorf("hostwire: read response: %w", err)
	}
	return resp, nil
}

// Close releases the pooled connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// GetCapabilities implements dispatcher.ToolClient.
func (c *Client) GetCapabilities(ctx context.Context) ([]models.Capability, error) {
	resp, err := c.roundTrip(ctx, wireproto.ToolHostRequest{Type: wireproto.TagGetCapabilities})
	if err != nil {
		return nil, err
	}
	if resp.Status != wireproto.StatusSuccess {
		return nil, fmt.Errorf("hostwire: get_capabilities: %s", resp.Message)
	}
	var caps []models.Capability
	if len(resp.Capabilities) > 0 {
		if err := json.Unmarshal(resp.Capabilities, &caps); err != nil {
			return nil, fmt.Errorf("hostwire: decode capabilities: %w", err)
		}
	}
	return caps, nil
}

// ExecuteTool implements dispatcher.ToolClient.
func (c *Client) ExecuteTool(ctx context.Context, server, tool string, args json.RawMessage) (json.RawMessage, error) {
	resp, err := c.roundTrip(ctx, wireproto.ToolHostRequest{
		Type:   wireproto.TagExecuteTool,
		Server: server,
		Tool:   tool,
		Args:   args,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != wireproto.StatusSuccess {
		return nil, fmt.Errorf("hostwire: execute_tool: %s", resp.Message)
	}
	return resp.ExecutionOutput, nil
}
