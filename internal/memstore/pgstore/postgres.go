// Package pgstore is a durable memstore.Store backed by PostgreSQL via
// github.com/lib/pq. Grounded on the teacher's
// internal/memory/backend/pgvector/backend.go (DSN/connection-reuse shape,
// upsert pattern), generalized from its vector-table schema down to the
// spec's key/value/tags contract for the same reason as sqlitestore: the
// spec treats the embedding/vector engine as an external collaborator.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/pkg/models"
)

// Store is a PostgreSQL-backed memstore.Store.
type Store struct {
	db     *sql.DB
	ownsDB bool
	scorer memstore.Scorer
}

// Config configures the PostgreSQL store.
type Config struct {
	// DSN is the connection string. Ignored if DB is set.
	DSN string
	// DB reuses an existing connection; the store will not close it.
	DB *sql.DB
	// Scorer used by QuerySemantic; DefaultScorer if nil.
	Scorer memstore.Scorer
}

// Open creates a PostgreSQL-backed store, running its migration if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var db *sql.DB
	var ownsDB bool

	switch {
	case cfg.DB != nil:
		db = cfg.DB
	case cfg.DSN != "":
		var err error
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("pgstore: open: %w", err)
		}
		ownsDB = true
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pgstore: ping: %w", err)
		}
	default:
		return nil, fmt.Errorf("pgstore: either DSN or DB must be provided")
	}

	s := &Store{db: db, ownsDB: ownsDB, scorer: cfg.Scorer}
	if s.scorer == nil {
		s.scorer = memstore.DefaultScorer{}
	}
	if err := s.migrate(ctx); err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS memories (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			timestamp BIGINT NOT NULL,
			tags JSONB NOT NULL DEFAULT '[]',
			session_id TEXT,
			source TEXT,
			related_keys JSONB NOT NULL DEFAULT '[]',
			confidence DOUBLE PRECISION,
			token_count INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *Store) AddMemory(ctx context.Context, key, value string, tags []string, opts memstore.AddOptions) error {
	if key == "" || value == "" {
		return memstore.ErrEmptyKeyOrValue
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingTags, existingRelated []string
	row := tx.QueryRowContext(ctx, `SELECT tags, related_keys FROM memories WHERE key = $1`, key)
	var tagsRaw, relatedRaw []byte
	switch err := row.Scan(&tagsRaw, &relatedRaw); err {
	case nil:
		_ = json.Unmarshal(tagsRaw, &existingTags)
		_ = json.Unmarshal(relatedRaw, &existingRelated)
	case sql.ErrNoRows:
	default:
		return fmt.Errorf("pgstore: lookup existing: %w", err)
	}

	mergedTags := models.MergeTags(existingTags, tags)
	relatedKeys := opts.RelatedKeys
	if len(relatedKeys) == 0 {
		relatedKeys = existingRelated
	}

	tagsJSON, _ := json.Marshal(mergedTags)
	relatedJSON, _ := json.Marshal(relatedKeys)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value, timestamp = EXCLUDED.timestamp, tags = EXCLUDED.tags,
			session_id = EXCLUDED.session_id, source = EXCLUDED.source,
			related_keys = EXCLUDED.related_keys, confidence = EXCLUDED.confidence,
			token_count = EXCLUDED.token_count
	`, key, value, time.Now().Unix(), tagsJSON, opts.SessionID, opts.Source, relatedJSON, opts.Confidence, opts.TokenCount)
	if err != nil {
		return fmt.Errorf("pgstore: upsert: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, key string) (*models.MemoryItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count FROM memories WHERE key = $1`, key)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func (s *Store) GetByTag(ctx context.Context, tag string) ([]models.MemoryItem, error) {
	items, err := s.List(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	var out []models.MemoryItem
	for _, item := range items {
		for _, t := range item.Tags {
			if t == tag {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, namespace string, limit int) ([]models.MemoryItem, error) {
	query := `SELECT key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count FROM memories`
	args := []any{}
	if namespace != "" {
		args = append(args, namespace+"%")
		query += fmt.Sprintf(` WHERE key LIKE $%d`, len(args))
	}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, key string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE key = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("pgstore: delete: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) QuerySemantic(ctx context.Context, query string, opts memstore.QueryOptions) ([]models.ScoredMemoryItem, error) {
	items, err := s.List(ctx, opts.Namespace, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredMemoryItem, 0, len(items))
	for _, item := range items {
		score := s.scorer.Score(query, item.Value)
		if score < opts.MinScore {
			continue
		}
		out = append(out, models.ScoredMemoryItem{Item: item, Score: score})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.MemoryItem, error) {
	var item models.MemoryItem
	var tagsRaw, relatedRaw []byte
	var sessionID, source sql.NullString
	var confidence sql.NullFloat64
	var tokenCount sql.NullInt64

	if err := row.Scan(&item.Key, &item.Value, &item.Timestamp, &tagsRaw, &sessionID, &source, &relatedRaw, &confidence, &tokenCount); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(tagsRaw, &item.Tags)
	_ = json.Unmarshal(relatedRaw, &item.RelatedKeys)
	item.SessionID = sessionID.String
	item.Source = source.String
	if confidence.Valid {
		item.Confidence = &confidence.Float64
	}
	if tokenCount.Valid {
		n := int(tokenCount.Int64)
		item.TokenCount = &n
	}
	return &item, nil
}

var _ memstore.Store = (*Store)(nil)
