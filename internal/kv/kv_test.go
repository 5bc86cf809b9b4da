package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskmesh/taskmesh/internal/kv"
)

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected kv.Driver
	}{
		{"empty defaults to sqlite", "", kv.DriverSQLite},
		{"postgres scheme", "postgres://localhost:5432/taskmesh", kv.DriverPostgres},
		{"postgresql scheme", "postgresql://localhost:5432/taskmesh", kv.DriverPostgres},
		{"file path falls back to sqlite", "/var/lib/taskmesh/kv.db", kv.DriverSQLite},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, kv.DetectDriver(tc.url))
		})
	}
}

func TestDefaultSQLitePath(t *testing.T) {
	path := kv.DefaultSQLitePath()
	assert.Contains(t, path, ".taskmesh")
	assert.Contains(t, path, "kv.db")
}
