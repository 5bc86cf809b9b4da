// Package sqlitekv implements the durable key/value surface on SQLite.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/taskmesh/taskmesh/internal/kv"
)

func init() {
	kv.RegisterSQLiteDriver(New)
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    revision   INTEGER NOT NULL DEFAULT 1,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);`

// Store implements kv.KV over a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) a SQLite-backed key/value store.
func New(ctx context.Context, cfg kv.Config) (kv.KV, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = kv.DefaultSQLitePath()
	}

	if path != ":memory:" {
		if err := kv.EnsureDirectory(path); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas: WAL for concurrent readers across processes, busy_timeout so a
	// competing writer waits instead of failing immediately.
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite doesn't support multiple writers, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply kv schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value for key, or ok=false if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
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
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
		    value      = excluded.value,
		    revision   = kv.revision + 1,
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		RETURNING revision`, key, value).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("failed to set %q: %w", key, err)
	}
	return revision, nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Revision returns the key's current revision, or 0 if the key is absent.
func (s *Store) Revision(ctx context.Context, key string) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM kv WHERE key = ?`, key).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return revision, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
