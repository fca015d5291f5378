package database

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLiteDialect implements Dialect for SQLite. The cgo driver (mattn) is the
// default; the pure Go driver (modernc) is used where cgo is unavailable.
type SQLiteDialect struct {
	driver string
}

// NewSQLiteDialect creates a SQLite dialect backed by github.com/mattn/go-sqlite3
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{driver: "sqlite3"}
}

// NewPureSQLiteDialect creates a SQLite dialect backed by modernc.org/sqlite
func NewPureSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{driver: "sqlite"}
}

func (d *SQLiteDialect) DriverName() string {
	return d.driver
}

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	if d.driver == "sqlite3" || strings.Contains(config.Path, "?") {
		return config.Path
	}
	// modernc applies pragmas per connection through the DSN
	return config.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return err
	}

	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}
