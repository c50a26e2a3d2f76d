// Package database persists capture records in SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("database: record not found")

type Config struct {
	Path string `yaml:"path"`
}

type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if needed) the SQLite file at cfg.Path and makes sure
// the schema exists. ":memory:" is accepted for tests.
func NewDB(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func (db *DB) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS captures (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		original_path TEXT NOT NULL,
		compressed_path TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		original_size INTEGER NOT NULL,
		compressed_size INTEGER NOT NULL,
		brightness REAL NOT NULL,
		contrast REAL NOT NULL,
		clarity REAL NOT NULL,
		overall REAL NOT NULL,
		is_good BOOLEAN NOT NULL,
		suggestion_kind TEXT NOT NULL,
		suggestion_text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_captures_created_at ON captures (created_at);
	`

	_, err := db.conn.ExecContext(ctx, query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Shutdown lets the DB be registered with the shutdown manager.
func (db *DB) Shutdown() {
	db.Close()
}
