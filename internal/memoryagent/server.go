// Package memoryagent implements the memory agent daemon (spec §4.6, C6):
// a Unix-socket server handling one request per connection, backed by a
// memstore.Store. Grounded on the teacher's internal/mcp/transport_stdio.go
// accept-loop/per-connection-goroutine shape, generalized from a stdio
// child process to a listening net.Listener, and on
// internal/memstore/async.go for the asynchronous StoreTurn write.
package memoryagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/triadhq/assistant/internal/frame"
	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/internal/wireproto"
)

// DefaultQuerySemanticLimit bounds how many memories GetMemories returns;
// a get_memories request carries no cap of its own.
const DefaultQuerySemanticLimit = 10

// Server is the memory agent's Unix-socket front end.
type Server struct {
	store  memstore.Store
	logger *slog.Logger
	codec  *frame.Codec

	listener net.Listener
}

// New builds a Server over store. logger defaults to slog.Default().
func New(store memstore.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		logger: logger.With("component", "memoryagent"),
		codec:  frame.NewCodec(frame.BigEndian, frame.DefaultCap),
	}
}

// Serve listens on socketPath (removing any stale socket file first) and
// accepts connections until ctx is canceled or Close is called.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	_ = removeStaleSocket(socketPath)

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("memoryagent: listen: %w", err)
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
			return fmt.Errorf("memoryagent: accept: %w", err)
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	payload, err := s.codec.ReadFrame(conn)
	if err != nil {
		s.logger.Warn("read request failed", "error", err)
		return
	}

	var env wireproto.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.logger.Warn("decode envelope failed", "error", err)
		return
	}

	switch env.Type {
	case wireproto.TagGetMemoriesRequest:
		s.handleGetMemories(conn, payload)
	case wireproto.TagStoreTurnRequest:
		s.handleStoreTurn(payload)
	default:
		s.logger.Warn("unknown request type", "type", env.Type)
	}
}

func (s *Server) handleGetMemories(conn net.Conn, payload []byte) {
	var req wireproto.GetMemoriesRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("decode get_memories_request failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scored, err := s.store.QuerySemantic(ctx, req.Query, memstore.QueryOptions{Limit: DefaultQuerySemanticLimit})
	if err != nil {
		s.logger.Warn("query semantic failed", "error", err)
		scored = nil
	}

	memories := make([]wireproto.MemoryWireItem, 0, len(scored))
	for _, item := range scored {
		ts := item.Item.Timestamp
		score := item.Score
		memories = append(memories, wireproto.MemoryWireItem{
			Content:   item.Item.Value,
			Source:    item.Item.Source,
			Timestamp: &ts,
			Score:     &score,
		})
	}

	resp := wireproto.GetMemoriesResponse{Type: wireproto.TagGetMemoriesResponse, Memories: memories}
	if err := s.codec.WriteJSON(conn, resp); err != nil {
		s.logger.Warn("write get_memories_response failed", "error", err)
	}
}

// handleStoreTurn decodes the request on the caller's goroutine (so a
// malformed payload is logged before the connection closes) then performs
// the actual store write asynchronously, per spec §4.6: "the agent
// responds with nothing, closes the connection, and performs the write
// asynchronously."
func (s *Server) handleStoreTurn(payload []byte) {
	var req wireproto.StoreTurnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("decode store_turn_request failed", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.persistTurn(ctx, req.TurnData); err != nil {
			s.logger.Warn("persist turn failed", "error", err)
		}
	}()
}

// persistTurn folds a conversation turn into one memory row: the spec
// leaves the exact turn→memory-item mapping unspecified, so this keys the
// row by a generated ID, stores the query/response pair as the value, and
// tags it for later retrieval by GetByTag("conversation_turn").
func (s *Server) persistTurn(ctx context.Context, turn wireproto.TurnData) error {
	if turn.UserQuery == "" && turn.LLMResponse == "" {
		return errors.New("memoryagent: empty turn")
	}
	key := fmt.Sprintf("turn:%s", uuid.NewString())
	value := fmt.Sprintf("Q: %s\nA: %s", turn.UserQuery, turn.LLMResponse)
	return s.store.AddMemory(ctx, key, value, []string{"conversation_turn"}, memstore.AddOptions{Source: "dispatcher"})
}

// removeStaleSocket unlinks a leftover socket file from an unclean prior
// shutdown so net.Listen can bind the path again (spec §5: "Socket files
// are removed on bind (pre-existing stale)...").
func removeStaleSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
