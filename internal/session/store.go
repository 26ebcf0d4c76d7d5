// Package session implements the dispatcher's session store (spec §4.2,
// C2): an in-memory keyed store of per-conversation state with expiry and
// listing. Grounded on the teacher's internal/sessions/memory.go, store.go,
// expiry.go, generalized from a multi-channel chat session model down to
// the spec's single opaque-ID session with a data map.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/triadhq/assistant/pkg/models"
)

// ErrNotFound is returned by Get when the session ID is absent or expired
// (spec §4.2: "get returns not-found if the ID is absent or expired"), and
// by Delete when the ID is absent; Delete removes an expired session
// without error.
var ErrNotFound = errors.New("session: not found")

// Store is the session-store contract (spec §4.2). A future durable backing
// (e.g. a SQL table) can implement this without changing callers.
type Store interface {
	Create(ctx context.Context, id string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context) (int, error)
	ListActive(ctx context.Context) ([]*models.Session, error)
}

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

// Create establishes a new session with created_at = updated_at = now and
// no expiry. If id is empty, a UUID is generated.
func (m *MemoryStore) Create(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &models.Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      make(map[string]string),
	}
	m.sessions[id] = s
	return s.Clone(), nil
}

// Get returns not-found if the ID is absent or expired.
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save is last-writer-wins; it updates UpdatedAt to now.
func (m *MemoryStore) Save(ctx context.Context, s *models.Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session: id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	clone := s.Clone()
	clone.UpdatedAt = m.now()
	m.sessions[clone.ID] = clone
	return nil
}

// Delete removes a session unconditionally.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// CleanupExpired removes all sessions whose ExpiresAt has passed and
// returns the count removed.
func (m *MemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// ListActive returns all non-expired sessions.
func (m *MemoryStore) ListActive(ctx context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Expired(now) {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

// SetNowFunc overrides the clock, for tests.
func (m *MemoryStore) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = fn
}

// ExtendExpiry pushes a session's ExpiresAt forward by d from now, creating
// it if unset. Used by the HTTP endpoint (C8) to implement "expiry extended
// on each request" (spec §4.8).
func ExtendExpiry(s *models.Session, d time.Duration, now time.Time) {
	exp := now.Add(d)
	s.ExpiresAt = &exp
}
