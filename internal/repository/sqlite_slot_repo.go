package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schedule_slots (
	slot_key   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteSlotRepository stores snapshots in a local SQLite database.
type SQLiteSlotRepository struct {
	db *sql.DB
}

// NewSQLiteSlotRepository opens (or creates) the database at path. The caller is
// responsible for calling Close.
func NewSQLiteSlotRepository(ctx context.Context, path string) (*SQLiteSlotRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteSlotRepository{db: db}, nil
}

func (r *SQLiteSlotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM schedule_slots WHERE slot_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query slot %s: %w", key, err)
	}
	return []byte(payload), nil
}

func (r *SQLiteSlotRepository) Save(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_slots (slot_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot_key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteSlotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE slot_key = ?`, key); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteSlotRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
func (r *SQLiteSlotRepository) Driver() string                 { return DriverSQLite }
func (r *SQLiteSlotRepository) Close() error                   { return r.db.Close() }
