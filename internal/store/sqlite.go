package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/models"
)

// SQLitePersister keeps the snapshot as a single row in a SQLite database.
type SQLitePersister struct {
	db *sql.DB
}

// NewSQLitePersister opens (or creates) the database at path and ensures the schema exists.
func NewSQLitePersister(path string) (*SQLitePersister, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// The snapshot is one row; a single connection avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			data TEXT NOT NULL,
			saved_at TEXT NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Name() string { return "sqlite" }

func (p *SQLitePersister) Close() error { return p.db.Close() }

func (p *SQLitePersister) Load(ctx context.Context) (*models.Snapshot, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM snapshot WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSnapshot(), nil
	}
	if err != nil {
		return nil, &apperrors.PersistenceError{Backend: p.Name(), Op: "load", Err: err}
	}
	snapshot, err := decodeSnapshot([]byte(data))
	if err != nil {
		return nil, &apperrors.PersistenceError{Backend: p.Name(), Op: "load", Err: err}
	}
	return snapshot, nil
}

func (p *SQLitePersister) Save(ctx context.Context, snapshot *models.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return &apperrors.PersistenceError{Backend: p.Name(), Op: "save", Err: err}
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO snapshot (id, version, data, saved_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, data = excluded.data, saved_at = excluded.saved_at`,
		snapshot.Version, string(data), snapshot.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &apperrors.PersistenceError{Backend: p.Name(), Op: "save", Err: err}
	}
	return nil
}
