package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the necessary schemas
// for save slots and the analytics ledger.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// Analytics write-through runs concurrently with autosaves.
		dsn = withPragmas(dbPath, "busy_timeout(5000)", "journal_mode(WAL)")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func withPragmas(path string, pragmas ...string) string {
	var sb strings.Builder
	sb.WriteString(path)
	for i, p := range pragmas {
		if i == 0 && !strings.Contains(path, "?") {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString("_pragma=")
		sb.WriteString(p)
	}
	return sb.String()
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			saved_at INTEGER NOT NULL,
			codec TEXT NOT NULL,
			payload BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id TEXT PRIMARY KEY,
			slot TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_slot ON analytics_events(slot, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(slot, event_type);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
