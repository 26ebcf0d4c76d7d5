package wire

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/triadhq/assistant/internal/frame"
)

// Client dials the dispatcher's Unix socket fresh for every call, matching
// the server's one-request-per-connection contract. Used by triadctl and
// the optional HTTP façade's reverse direction is not needed since httpapi
// calls the Coordinator in-process.
type Client struct {
	socketPath  string
	codec       *frame.Codec
	dialTimeout time.Duration
}

// NewClient builds a Client for the dispatcher listening at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath:  socketPath,
		codec:       newCodec(),
		dialTimeout: 5 * time.Second,
	}
}

// Query sends one request and returns the dispatcher's response.
func (c *Client) Query(ctx context.Context, query, sessionID string) (Response, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("wire: dial: %w", err)
	}
	defer conn.Close()

	req := Request{Query: query, SessionID: sessionID}
	if err := c.codec.WriteJSON(conn, req); err != nil {
		return Response{}, fmt.Errorf("wire: write request: %w", err)
	}

	var resp Response
	if err := c.codec.ReadJSON(conn, &resp); err != nil {
		return Response{}, fmt.Errorf("wire: read response: %w", err)
	}
	return resp, nil
}
