// Package sqlitestore is a durable memstore.Store backed by SQLite via the
// pure-Go modernc.org/sqlite driver. Grounded on the teacher's
// internal/memory/backend/sqlitevec/backend.go (schema/driver choice),
// generalized from a vector-table schema down to the spec's key/value/tags
// contract since the spec treats embedding storage as an external
// collaborator, not a component this repo implements.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/pkg/models"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed memstore.Store.
type Store struct {
	db     *sql.DB
	scorer memstore.Scorer
}

// Config configures the SQLite store.
type Config struct {
	// Path to the database file. ":memory:" for an ephemeral in-process DB.
	Path string
	// Scorer used by QuerySemantic; DefaultScorer if nil.
	Scorer memstore.Scorer
}

// Open creates (or reuses) a SQLite-backed store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	s := &Store{db: db, scorer: cfg.Scorer}
	if s.scorer == nil {
		s.scorer = memstore.DefaultScorer{}
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			session_id TEXT,
			source TEXT,
			related_keys TEXT NOT NULL DEFAULT '[]',
			confidence REAL,
			token_count INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AddMemory(ctx context.Context, key, value string, tags []string, opts memstore.AddOptions) error {
	if key == "" || value == "" {
		return memstore.ErrEmptyKeyOrValue
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existingTags, existingRelated, err := s.existingTagsAndRelated(ctx, tx, key)
	if err != nil {
		return err
	}
	mergedTags := models.MergeTags(existingTags, tags)
	relatedKeys := opts.RelatedKeys
	if len(relatedKeys) == 0 {
		relatedKeys = existingRelated
	}

	tagsJSON, err := json.Marshal(mergedTags)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal tags: %w", err)
	}
	relatedJSON, err := json.Marshal(relatedKeys)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal related keys: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value, timestamp=excluded.timestamp, tags=excluded.tags,
			session_id=excluded.session_id, source=excluded.source,
			related_keys=excluded.related_keys, confidence=excluded.confidence,
			token_count=excluded.token_count
	`, key, value, time.Now().Unix(), string(tagsJSON), opts.SessionID, opts.Source, string(relatedJSON), opts.Confidence, opts.TokenCount)
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert: %w", err)
	}
	return tx.Commit()
}

func (s *Store) existingTagsAndRelated(ctx context.Context, tx *sql.Tx, key string) ([]string, []string, error) {
	row := tx.QueryRowContext(ctx, `SELECT tags, related_keys FROM memories WHERE key = ?`, key)
	var tagsJSON, relatedJSON string
	if err := row.Scan(&tagsJSON, &relatedJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("sqlitestore: lookup existing: %w", err)
	}
	var tags, related []string
	_ = json.Unmarshal([]byte(tagsJSON), &tags)
	_ = json.Unmarshal([]byte(relatedJSON), &related)
	return tags, related, nil
}

func (s *Store) Get(ctx context.Context, key string) (*models.MemoryItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count FROM memories WHERE key = ?`, key)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func (s *Store) GetByTag(ctx context.Context, tag string) ([]models.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		for _, t := range item.Tags {
			if t == tag {
				out = append(out, *item)
				break
			}
		}
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, namespace string, limit int) ([]models.MemoryItem, error) {
	query := `SELECT key, value, timestamp, tags, session_id, source, related_keys, confidence, token_count FROM memories`
	args := []any{}
	if namespace != "" {
		query += ` WHERE key LIKE ?`
		args = append(args, namespace+"%")
	}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE key = ?`, key)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: delete: %w", err)
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
	var tagsJSON, relatedJSON string
	var sessionID, source sql.NullString
	var confidence sql.NullFloat64
	var tokenCount sql.NullInt64

	if err := row.Scan(&item.Key, &item.Value, &item.Timestamp, &tagsJSON, &sessionID, &source, &relatedJSON, &confidence, &tokenCount); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &item.Tags)
	_ = json.Unmarshal([]byte(relatedJSON), &item.RelatedKeys)
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
