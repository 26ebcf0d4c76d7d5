// Package toolhostd exposes a toolhost.Host over the dispatcher↔tool host
// Unix socket (spec §4.5/§6, C5's daemon-facing surface): big-endian
// length-prefixed JSON request/response. Grounded the same way as
// internal/memoryagent, generalized to the tool-host's status-envelope
// response shape instead of get_memories'/store_turn's tagged pair.
package toolhostd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/triadhq/assistant/internal/frame"
	"github.com/triadhq/assistant/internal/toolhost"
	"github.com/triadhq/assistant/internal/wireproto"
)

// Server is the tool host's Unix-socket front end.
type Server struct {
	host   *toolhost.Host
	logger *slog.Logger
	codec  *frame.Codec

	listener net.Listener
}

// New builds a Server over host. logger defaults to slog.Default().
func New(host *toolhost.Host, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		host:   host,
		logger: logger.With("component", "toolhostd"),
		codec:  frame.NewCodec(frame.BigEndian, frame.DefaultCap),
	}
}

// Serve listens on socketPath and accepts connections until ctx is
// canceled or Close is called. Unlike the memory agent, one connection may
// carry multiple sequential requests (spec §5: responses are ordered with
// respect to requests on a connection).
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("toolhostd: remove stale socket: %w", err)
	}

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("toolhostd: listen: %w", err)
	}
	s.listener = l

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("toolhostd: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := s.codec.ReadFrame(conn)
		if err != nil {
			return
		}
		resp := s.dispatch(ctx, payload)
		if err := s.codec.WriteJSON(conn, resp); err != nil {
			s.logger.Warn("write response failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, payload []byte) wireproto.ToolHostResponse {
	var req wireproto.ToolHostRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResponse(fmt.Errorf("toolhostd: decode request: %w", err))
	}

	switch req.Type {
	case wireproto.TagGetCapabilities:
		caps := s.host.GetAllCapabilities()
		raw, err := json.Marshal(caps)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.ToolHostResponse{Status: wireproto.StatusSuccess, Capabilities: raw}

	case wireproto.TagExecuteTool:
		out, err := s.host.ExecuteTool(ctx, req.Server, req.Tool, req.Args)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.ToolHostResponse{Status: wireproto.StatusSuccess, ExecutionOutput: out}

	case wireproto.TagGenerateEmbedding:
		vec, err := s.host.GenerateEmbedding(ctx, req.Text)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.ToolHostResponse{Status: wireproto.StatusSuccess, Embedding: vec}

	case wireproto.TagGetBrokerCapabilities:
		caps := s.host.GetAllCapabilities()
		raw, err := json.Marshal(caps)
		if err != nil {
			return errorResponse(err)
		}
		return wireproto.ToolHostResponse{Status: wireproto.StatusSuccess, BrokerCapabilities: raw}

	default:
		return errorResponse(fmt.Errorf("toolhostd: unknown request type %q", req.Type))
	}
}

func errorResponse(err error) wireproto.ToolHostResponse {
	return wireproto.ToolHostResponse{Status: wireproto.StatusError, Message: err.Error()}
}
