package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/triadhq/assistant/internal/dispatcher"
	"github.com/triadhq/assistant/internal/frame"
	"github.com/triadhq/assistant/internal/session"
)

// Server is the client-facing Unix-socket front end (C8), delegating
// everything but the two reserved queries to a dispatcher.Coordinator.
type Server struct {
	coord    *dispatcher.Coordinator
	sessions session.Store
	logger   *slog.Logger
	codec    *frame.Codec

	listener net.Listener
}

// New builds a Server. logger defaults to slog.Default().
func New(coord *dispatcher.Coordinator, sessions session.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		coord:    coord,
		sessions: sessions,
		logger:   logger.With("component", "wire"),
		codec:    newCodec(),
	}
}

// Serve listens on socketPath (removing any stale socket file first, spec
// §5) and accepts connections until ctx is canceled or Close is called.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	_ = removeStaleSocket(socketPath)

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("wire: listen: %w", err)
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
			return fmt.Errorf("wire: accept: %w", err)
		}
		go s.handle(ctx, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := s.codec.ReadJSON(conn, &req); err != nil {
		s.logger.Warn("read request failed", "error", err)
		return
	}

	resp := s.dispatch(ctx, req)
	if err := s.codec.WriteJSON(conn, resp); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Query {
	case PingQuery:
		sessionID, err := resolveSessionID(ctx, s.sessions, req.SessionID)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Response: "", SessionID: sessionID}
	case ListSessionsQuery:
		return s.listSessions(ctx, req.SessionID)
	default:
		text, sessionID, err := s.coord.HandleQuery(ctx, req.Query, req.SessionID)
		if err != nil {
			s.logger.Warn("handle query failed", "error", err, "session_id", sessionID)
			return Response{SessionID: sessionID, Error: err.Error()}
		}
		return Response{Response: text, SessionID: sessionID}
	}
}

func (s *Server) listSessions(ctx context.Context, requestedSessionID string) Response {
	sessionID, err := resolveSessionID(ctx, s.sessions, requestedSessionID)
	if err != nil {
		return Response{Error: err.Error()}
	}

	active, err := s.sessions.ListActive(ctx)
	if err != nil {
		return Response{SessionID: sessionID, Error: err.Error()}
	}
	ids := make([]string, 0, len(active))
	for _, sess := range active {
		ids = append(ids, sess.ID)
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return Response{SessionID: sessionID, Error: err.Error()}
	}
	return Response{Response: string(encoded), SessionID: sessionID}
}

// resolveSessionID mirrors the dispatcher's own resolveSession: reuse an
// existing non-expired session if id names one, otherwise create a new
// session (with a generated ID if id is empty).
func resolveSessionID(ctx context.Context, store session.Store, id string) (string, error) {
	if id != "" {
		if _, err := store.Get(ctx, id); err == nil {
			return id, nil
		}
	}
	sess, err := store.Create(ctx, id)
	if err != nil {
		return "", fmt.Errorf("wire: resolve session: %w", err)
	}
	return sess.ID, nil
}

// removeStaleSocket unlinks a leftover socket file from an unclean prior
// shutdown so net.Listen can bind the path again (spec §5).
func removeStaleSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
