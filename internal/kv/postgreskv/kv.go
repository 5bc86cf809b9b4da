// Package postgreskv implements the durable key/value surface on PostgreSQL.
package postgreskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmesh/taskmesh/internal/kv"
)

func init() {
	kv.RegisterPostgresDriver(New)
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    revision   BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store implements kv.KV over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and ensures the kv table exists.
func New(ctx context.Context, cfg kv.Config) (kv.KV, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply kv schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Get returns the value for key, or ok=false if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes value under key and returns the key's new revision.
func (s *Store) Set(ctx context.Context, key string, value []byte) (int64, error) {
	var revision int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
		    value      = EXCLUDED.value,
		    revision   = kv.revision + 1,
		    updated_at = now()
		RETURNING revision`, key, value).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("failed to set %q: %w", key, err)
	}
	return revision, nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key)
	return err
}

// Revision returns the key's current revision, or 0 if the key is absent.
func (s *Store) Revision(ctx context.Context, key string) (int64, error) {
	var revision int64
	err := s.pool.QueryRow(ctx, `SELECT revision FROM kv WHERE key = $1`, key).Scan(&revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return revision, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
