// Package httpapi implements the dispatcher's optional HTTP façade (spec
// §4.8, C8): GET / for liveness, POST /query mirroring the Unix endpoint's
// request/response shape with an X-Session-ID header override, plus the
// SPEC_FULL-added /healthz and /metrics ambient endpoints. Grounded on the
// teacher's internal/gateway/http_server.go mux.Handle wiring and
// handleHealthz/handleMetrics pattern.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/triadhq/assistant/internal/dispatcher"
	"github.com/triadhq/assistant/internal/session"
)

// LivenessMessage is returned verbatim by GET / and GET /healthz.
const LivenessMessage = "ok"

// DefaultSessionTTL is the expiry extended on every /query request when New
// is given sessionTTL <= 0 (spec §4.8: "Sessions default
// to a one-hour expiry extended on each request").
const DefaultSessionTTL = time.Hour

// Request mirrors the Unix endpoint's wire.Request shape (spec §4.8:
// "accepts the same JSON shape as the Unix endpoint").
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Response mirrors the Unix endpoint's wire.Response shape.
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Server wraps a dispatcher.Coordinator with an HTTP mux.
type Server struct {
	coord      *dispatcher.Coordinator
	sessions   session.Store
	logger     *slog.Logger
	sessionTTL time.Duration
	gatherer   prometheus.Gatherer
}

// New builds a Server. sessionTTL <= 0 uses DefaultSessionTTL. gatherer
// defaults to prometheus.DefaultGatherer when nil.
func New(coord *dispatcher.Coordinator, sessions session.Store, sessionTTL time.Duration, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		coord:      coord,
		sessions:   sessions,
		logger:     logger.With("component", "httpapi"),
		sessionTTL: sessionTTL,
		gatherer:   gatherer,
	}
}

// Handler builds the HTTP mux: GET /, GET /healthz, POST /query, GET /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleLiveness)
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("/query", s.handleQuery)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/healthz" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, LivenessMessage)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, Response{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Query == "" {
		s.writeJSON(w, http.StatusBadRequest, Response{Error: "query is required"})
		return
	}

	sessionID := req.SessionID
	if header := r.Header.Get("X-Session-ID"); header != "" {
		sessionID = header
	}

	ctx := r.Context()
	sessionID, err := s.touchSession(ctx, sessionID)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	text, resolvedSessionID, err := s.coord.HandleQuery(ctx, req.Query, sessionID)
	if err != nil {
		s.logger.Warn("handle query failed", "error", err, "session_id", resolvedSessionID)
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNotFound) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, Response{SessionID: resolvedSessionID, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Response: text, SessionID: resolvedSessionID})
}

// touchSession resolves (creating if necessary) the session named by id
// and extends its expiry by s.sessionTTL, per spec §4.8's per-request
// expiry extension. Returns the resolved session ID.
func (s *Server) touchSession(ctx context.Context, id string) (string, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			return "", fmt.Errorf("httpapi: resolve session: %w", err)
		}
		sess, err = s.sessions.Create(ctx, id)
		if err != nil {
			return "", fmt.Errorf("httpapi: create session: %w", err)
		}
	}
	session.ExtendExpiry(sess, s.sessionTTL, time.Now())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("httpapi: save session: %w", err)
	}
	return sess.ID, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}
