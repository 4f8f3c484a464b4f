package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	// Registers the sqlite3 database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agentloop/core"
)

// SQLite is a durable core.Session implementation backed by a SQLite
// database. Items are stored one row per RunItem with a monotonic sequence
// per session; the JSON payload keeps the variant discriminator so history
// round-trips across restarts. Append commits each batch in a single
// transaction (all-or-nothing); a per-store mutex serializes mutations.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
	id string
}

// NewSQLite opens (or creates) the database at dsn and binds the store to
// the given session id. Multiple stores may share one database file.
func NewSQLite(dsn, sessionID string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLite{db: db, id: sessionID}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the items table and its ordering index.
func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS run_items (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_items_session ON run_items(session_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error { return s.db.Close() }

// ID implements core.Session.
func (s *SQLite) ID() string { return s.id }

// Read implements core.Session.
func (s *SQLite) Read(ctx context.Context, limit int) ([]core.RunItem, error) {
	if limit == 0 {
		return []core.RunItem{}, nil
	}

	// Take the last N rows, then restore insertion order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM (
			SELECT seq, payload FROM run_items WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		s.id, limit)
	if err != nil {
		return nil, &core.SessionError{Op: "read", Err: err}
	}
	defer rows.Close()

	var items []core.RunItem
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, &core.SessionError{Op: "read", Err: err}
		}
		item, err := core.UnmarshalItem(payload)
		if err != nil {
			return nil, &core.SessionError{Op: "read", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.SessionError{Op: "read", Err: err}
	}

	return items, nil
}

// Append implements core.Session. The batch is committed atomically.
func (s *SQLite) Append(ctx context.Context, items ...core.RunItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.SessionError{Op: "append", Err: err}
	}

	for _, item := range items {
		payload, err := core.MarshalItem(item)
		if err != nil {
			tx.Rollback()
			return &core.SessionError{Op: "append", Err: err}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_items (session_id, kind, payload) VALUES (?, ?, ?)`,
			s.id, string(item.Kind()), string(payload)); err != nil {
			tx.Rollback()
			return &core.SessionError{Op: "append", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &core.SessionError{Op: "append", Err: err}
	}
	return nil
}

// PopLast implements core.Session.
func (s *SQLite) PopLast(ctx context.Context) (core.RunItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, &core.SessionError{Op: "pop", Err: err}
	}

	var seq int64
	var payload []byte
	row := tx.QueryRowContext(ctx,
		`SELECT seq, payload FROM run_items WHERE session_id = ? ORDER BY seq DESC LIMIT 1`, s.id)
	if err := row.Scan(&seq, &payload); err != nil {
		tx.Rollback()
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &core.SessionError{Op: "pop", Err: err}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_items WHERE seq = ?`, seq); err != nil {
		tx.Rollback()
		return nil, false, &core.SessionError{Op: "pop", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, &core.SessionError{Op: "pop", Err: err}
	}

	item, err := core.UnmarshalItem(payload)
	if err != nil {
		return nil, false, &core.SessionError{Op: "pop", Err: err}
	}
	return item, true, nil
}

// Clear implements core.Session.
func (s *SQLite) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_items WHERE session_id = ?`, s.id); err != nil {
		return &core.SessionError{Op: "clear", Err: err}
	}
	return nil
}
