package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"reddit_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements SeenStore backed by a SQLite database.
type SQLite struct {
	db *sql.DB

	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewSQLite opens a SQLite database at dsn, runs pending migrations,
// and hydrates the in-memory mirror.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLite{db: db, seen: make(map[string]struct{})}

	ids, err := s.LoadAll(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("hydrate seen set: %w", err)
	}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Contains reports whether a post id has already been forwarded.
func (s *SQLite) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// MarkSeen durably records a post id. Inserting an existing id is a
// no-op.
func (s *SQLite) MarkSeen(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_posts (id, added_at) VALUES (?, ?)`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	s.mu.Lock()
	s.seen[id] = struct{}{}
	s.mu.Unlock()
	return nil
}

// LoadAll returns every recorded post id.
func (s *SQLite) LoadAll(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query seen posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen post: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
