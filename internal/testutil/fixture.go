// Package testutil provides shared fixtures for package tests: throwaway
// SQLite pools, runners and normalized JSON for golden comparisons.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"namereg/internal/config"
	"namereg/internal/jobs"
	"namereg/internal/slogutil"
	"namereg/internal/storage"
)

// DatabaseConfig returns the default database settings pointed at a file in
// a per-test temporary directory.
func DatabaseConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	cfg := config.DefaultConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	return cfg
}

// OpenDB opens a pool on a fresh database file. mutate, if non-nil, may
// adjust the settings first. The pool is closed when the test ends.
func OpenDB(t *testing.T, mutate func(*config.DatabaseConfig)) *storage.DB {
	t.Helper()
	cfg := DatabaseConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}
	db, err := storage.Open(context.Background(), cfg, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Exec creates the schema if needed and runs one setup statement.
func Exec(t *testing.T, db *storage.DB, stmt string) {
	t.Helper()
	ctx := context.Background()
	if err := storage.InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	conn, err := db.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer conn.Release()
	if err := conn.Exec(ctx, stmt); err != nil {
		t.Fatalf("Exec(%q) error = %v", stmt, err)
	}
}

// CountRows counts stored records with the given name, or all records when
// name is empty.
func CountRows(t *testing.T, db *storage.DB, name string) int {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer conn.Release()

	n, err := storage.CountRecords(ctx, conn, name)
	if err != nil {
		t.Fatalf("CountRecords() error = %v", err)
	}
	return n
}

// StoredName reads the name stored under id.
func StoredName(t *testing.T, db *storage.DB, id string) string {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer conn.Release()

	name, err := storage.LookupName(ctx, conn, id)
	if err != nil {
		t.Fatalf("LookupName(%q) error = %v", id, err)
	}
	return name
}

// StartRunner starts a runner that is stopped when the test ends.
func StartRunner(t *testing.T, workers, queue int) *jobs.Runner {
	t.Helper()
	r := jobs.NewRunner(slogutil.NewDiscardLogger(), jobs.RunnerConfig{WorkerCount: workers, QueueSize: queue})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Stop(5 * time.Second) })
	return r
}
