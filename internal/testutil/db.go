// Package testutil opens migrated throwaway databases for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"therapytrack/internal/database"
	"therapytrack/migrations"
)

// OpenDB returns a migrated SQLite database in a temp dir, closed on cleanup
func OpenDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), migrations.FS, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}
