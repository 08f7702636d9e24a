package approval

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/jobtriage/internal/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations to the database at dsn.
// An already up-to-date database is not an error.
func Migrate(dsn string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// PostgresStore keeps each submission as a JSONB document in approval_queue.
// Position preserves queue order across saves.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and verifies the pool. Run Migrate first.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Load(ctx context.Context) ([]types.Submission, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM approval_queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	subs := []types.Submission{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		var sub types.Submission
		if err := json.Unmarshal(doc, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	return subs, nil
}

// Save replaces the table contents in one transaction.
func (s *PostgresStore) Save(ctx context.Context, subs []types.Submission) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM approval_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	batch := &pgx.Batch{}
	for i, sub := range subs {
		doc, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("failed to marshal submission %s: %w", sub.ID, err)
		}
		batch.Queue(
			`INSERT INTO approval_queue (id, position, status, created_at, doc)
			 VALUES ($1, $2, $3, $4, $5)`,
			sub.ID, i, string(sub.Status), sub.CreatedAt, doc,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range subs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert submission: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to flush batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit queue: %w", err)
	}
	return nil
}
