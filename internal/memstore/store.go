// Package memstore implements the memory interface (spec §4.3, C3): the
// abstract add/query/delete/get/list contract over persisted memory items,
// plus a default in-memory implementation and a bounded-queue async
// decorator. Grounded on the teacher's internal/memory/manager.go (the
// contract shape) and internal/memory/backend (the pluggable-backend
// pattern), generalized from the teacher's vector-vs-BM25 scoped backend to
// the spec's simpler key/tag/semantic contract.
package memstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/triadhq/assistant/pkg/models"
)

// ErrEmptyKeyOrValue is returned by AddMemory when key or value is empty
// (spec §3 invariant).
var ErrEmptyKeyOrValue = errors.New("memstore: key and value must be non-empty")

// AddOptions carries the optional fields of AddMemory.
type AddOptions struct {
	SessionID   string
	Source      string
	RelatedKeys []string
	Confidence  *float64
	TokenCount  *int
}

// QueryOptions carries the optional fields of QuerySemantic.
type QueryOptions struct {
	Namespace string
	Limit     int
	MinScore  float64
}

// Store is the memory interface contract (spec §4.3).
type Store interface {
	AddMemory(ctx context.Context, key, value string, tags []string, opts AddOptions) error
	QuerySemantic(ctx context.Context, query string, opts QueryOptions) ([]models.ScoredMemoryItem, error)
	Get(ctx context.Context, key string) (*models.MemoryItem, error)
	GetByTag(ctx context.Context, tag string) ([]models.MemoryItem, error)
	List(ctx context.Context, namespace string, limit int) ([]models.MemoryItem, error)
	Delete(ctx context.Context, key string) (int, error)
}

// MemoryStore is the default in-memory Store implementation. It is
// synchronous: AddMemory merges tags and updates the most recent existing
// row for the key rather than creating a duplicate (spec §4.3).
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]models.MemoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]models.MemoryItem),
		now:   time.Now,
	}
}

func (m *MemoryStore) AddMemory(ctx context.Context, key, value string, tags []string, opts AddOptions) error {
	if key == "" || value == "" {
		return ErrEmptyKeyOrValue
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item := models.MemoryItem{
		Key:         key,
		Value:       value,
		Timestamp:   m.now().Unix(),
		Tags:        tags,
		SessionID:   opts.SessionID,
		Source:      opts.Source,
		RelatedKeys: opts.RelatedKeys,
		Confidence:  opts.Confidence,
		TokenCount:  opts.TokenCount,
	}

	if existing, ok := m.items[key]; ok {
		item.Tags = models.MergeTags(existing.Tags, tags)
		if len(item.RelatedKeys) == 0 {
			item.RelatedKeys = existing.RelatedKeys
		}
	}

	m.items[key] = item
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*models.MemoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	clone := item
	return &clone, nil
}

func (m *MemoryStore) GetByTag(ctx context.Context, tag string) ([]models.MemoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MemoryItem
	for _, item := range m.items {
		for _, t := range item.Tags {
			if t == tag {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) List(ctx context.Context, namespace string, limit int) ([]models.MemoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MemoryItem
	for _, item := range m.items {
		if namespace != "" && !strings.HasPrefix(item.Key, namespace) {
			continue
		}
		out = append(out, item)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key]; !ok {
		return 0, nil
	}
	delete(m.items, key)
	return 1, nil
}

// QuerySemantic scores every item with DefaultScorer and returns the
// results above MinScore, highest score first, bounded to Limit.
func (m *MemoryStore) QuerySemantic(ctx context.Context, query string, opts QueryOptions) ([]models.ScoredMemoryItem, error) {
	m.mu.RLock()
	items := make([]models.MemoryItem, 0, len(m.items))
	for _, item := range m.items {
		if opts.Namespace != "" && !strings.HasPrefix(item.Key, opts.Namespace) {
			continue
		}
		items = append(items, item)
	}
	m.mu.RUnlock()

	scorer := DefaultScorer{}
	out := make([]models.ScoredMemoryItem, 0, len(items))
	for _, item := range items {
		score := scorer.Score(query, item.Value)
		if score < opts.MinScore {
			continue
		}
		out = append(out, models.ScoredMemoryItem{Item: item, Score: score})
	}

	sortByScoreDesc(out)
	limit := opts.Limit
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = fn
}

func sortByScoreDesc(items []models.ScoredMemoryItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Score > items[j-1].Score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
