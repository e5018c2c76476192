package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps the mapping as one JSON document in a settings
// table row named Slot.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dbPath and ensures the
// settings table exists.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("make db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps read-modify-write in Set on a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = FULL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    )`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create settings: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// GetAll implements Backend.
func (s *SQLiteBackend) GetAll(ctx context.Context) (map[string]string, error) {
	return getAll(ctx, s.db)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAll(ctx context.Context, q queryRower) (map[string]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, Slot).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Slot, err)
	}
	values := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Slot, err)
	}
	return values, nil
}

// Set implements Backend.
func (s *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	values, err := getAll(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	values[key] = value

	b, err := json.Marshal(values)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("encode %s: %w", Slot, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO settings(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, Slot, string(b)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("write %s: %w", Slot, err)
	}
	return tx.Commit()
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
