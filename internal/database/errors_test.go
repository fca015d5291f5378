package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolationDriverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"lib/pq unique", &pq.Error{Code: "23505"}, true},
		{"lib/pq foreign key", &pq.Error{Code: "23503"}, false},
		{"pgx unique wrapped", fmt.Errorf("failed to insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgx not null", &pgconn.PgError{Code: "23502"}, false},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, true},
		{"mysql lock timeout", &mysql.MySQLError{Number: 1205}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	for name, dialect := range map[string]Dialect{
		"mattn":   NewSQLiteDialect(),
		"modernc": NewPureSQLiteDialect(),
	} {
		t.Run(name, func(t *testing.T) {
			db, err := open(dialect, DialectConfig{Path: filepath.Join(t.TempDir(), "unique.db")})
			if err != nil {
				t.Fatalf("Failed to initialize database: %v", err)
			}
			t.Cleanup(func() { db.Close() })
			ctx := context.Background()

			if _, err := db.ExecContext(ctx, "CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT UNIQUE NOT NULL)"); err != nil {
				t.Fatalf("failed to create table: %v", err)
			}
			if _, err := db.ExecContext(ctx, "INSERT INTO things (id, name) VALUES (1, 'a')"); err != nil {
				t.Fatalf("first insert failed: %v", err)
			}

			_, err = db.ExecContext(ctx, "INSERT INTO things (id, name) VALUES (2, 'a')")
			if !IsUniqueViolation(fmt.Errorf("wrapped: %w", err)) {
				t.Errorf("duplicate name not reported as unique violation: %v", err)
			}
			_, err = db.ExecContext(ctx, "INSERT INTO things (id, name) VALUES (1, 'b')")
			if !IsUniqueViolation(err) {
				t.Errorf("duplicate key not reported as unique violation: %v", err)
			}
			_, err = db.ExecContext(ctx, "INSERT INTO things (id, name) VALUES (3, NULL)")
			if err == nil || IsUniqueViolation(err) {
				t.Errorf("not null failure misreported: %v", err)
			}
		})
	}
}
