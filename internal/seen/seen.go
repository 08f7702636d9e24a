// Package seen records which inbound message IDs have already been handled,
// per source, so restarts do not reprocess them.
package seen

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Default prune thresholds for chat sources
const (
	DefaultCap  = 200
	DefaultKeep = 100
)

// Store is a SQLite-backed set of (source, id) pairs
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("seen: mkdir %s: %w", filepath.Dir(path), err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("seen: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seen: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS processed (
		source     TEXT NOT NULL,
		id         TEXT NOT NULL,
		message_at INTEGER NOT NULL,
		marked_at  INTEGER NOT NULL,
		PRIMARY KEY (source, id)
	)`); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_processed_order ON processed (source, message_at)`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seen reports whether id was marked for source.
func (s *Store) Seen(ctx context.Context, source, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed WHERE source = ? AND id = ?`, source, id,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seen: query: %w", err)
	}
	return true, nil
}

// Mark records id for source. at is the message time and orders pruning;
// marking twice keeps the first record.
func (s *Store) Mark(ctx context.Context, source, id string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed (source, id, message_at, marked_at) VALUES (?, ?, ?, ?)`,
		source, id, at.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("seen: mark: %w", err)
	}
	return nil
}

// Count returns how many IDs are recorded for source.
func (s *Store) Count(ctx context.Context, source string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed WHERE source = ?`, source,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("seen: count: %w", err)
	}
	return n, nil
}

// Prune keeps only the newest keep records once source holds more than max.
// It returns how many rows were removed.
func (s *Store) Prune(ctx context.Context, source string, max, keep int) (int, error) {
	n, err := s.Count(ctx, source)
	if err != nil {
		return 0, err
	}
	if n <= max {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed WHERE source = ? AND id NOT IN (
			SELECT id FROM processed WHERE source = ? ORDER BY message_at DESC, marked_at DESC LIMIT ?
		)`,
		source, source, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("seen: prune: %w", err)
	}
	removed, _ := res.RowsAffected()
	return int(removed), nil
}
