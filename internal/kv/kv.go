// Package kv defines the durable key/value surface consumed by the task
// store: get/set/delete by key plus a per-key revision counter that doubles
// as a cross-process change signal.
package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Driver represents a key/value backend type.
type Driver string

const (
	// DriverSQLite stores keys in a local SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores keys in a PostgreSQL table.
	DriverPostgres Driver = "postgres"
)

func (d Driver) String() string { return string(d) }

// KV is a durable key/value store. Set bumps the key's revision by one and
// returns the new value; Revision exposes the current counter so pollers can
// detect mutations made by other processes.
type KV interface {
	// Get returns the value for key. The second return is false when the key
	// does not exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value under key and returns the key's new revision.
	Set(ctx context.Context, key string, value []byte) (int64, error)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Revision returns the key's current revision, or 0 if the key is absent.
	Revision(ctx context.Context, key string) (int64, error)

	Close() error
}

// Config holds key/value store configuration.
type Config struct {
	// Driver selects the backend. Empty or "auto" detects from URL.
	Driver Driver

	// URL is the PostgreSQL connection string, if any.
	URL string

	// SQLitePath is the SQLite database file path.
	// Defaults to ~/.taskmesh/kv.db.
	SQLitePath string
}

// Open creates a key/value store based on configuration.
func Open(ctx context.Context, cfg Config) (KV, error) {
	driver := cfg.Driver
	if driver == "" || driver == "auto" {
		driver = DetectDriver(cfg.URL)
	}

	switch driver {
	case DriverPostgres:
		if newPostgresKV == nil {
			return nil, fmt.Errorf("postgres key/value driver not registered")
		}
		return newPostgresKV(ctx, cfg)
	case DriverSQLite:
		if newSQLiteKV == nil {
			return nil, fmt.Errorf("sqlite key/value driver not registered")
		}
		return newSQLiteKV(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported key/value driver: %s", driver)
	}
}

// DetectDriver parses a connection string and returns the driver type.
// Returns DriverSQLite for empty URLs to enable zero-config local mode.
func DetectDriver(url string) Driver {
	if url == "" {
		return DriverSQLite
	}
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// DefaultSQLitePath returns the default SQLite database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".taskmesh", "kv.db")
}

// EnsureDirectory creates the parent directory for a file path if missing.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Driver factories are registered from the driver packages via blank imports
// so the kv package stays free of driver dependencies.
var (
	newSQLiteKV   func(ctx context.Context, cfg Config) (KV, error)
	newPostgresKV func(ctx context.Context, cfg Config) (KV, error)
)

// RegisterSQLiteDriver registers the SQLite key/value factory.
func RegisterSQLiteDriver(fn func(ctx context.Context, cfg Config) (KV, error)) {
	newSQLiteKV = fn
}

// RegisterPostgresDriver registers the PostgreSQL key/value factory.
func RegisterPostgresDriver(fn func(ctx context.Context, cfg Config) (KV, error)) {
	newPostgresKV = fn
}
