package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per collection holding its JSON payload.
type SQLiteStore struct {
	db *sql.DB
}

var _ CollectionStore = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Whole-collection overwrites are serialized through a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "component", "storage", "path", dbPath, "version", version)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Read implements CollectionStore
func (s *SQLiteStore) Read(ctx context.Context, c Collection) (json.RawMessage, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("unknown collection %q", c)
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM collections WHERE name = ?`, c.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select collection %s: %w", c, err)
	}
	return json.RawMessage(payload), nil
}

// Write implements CollectionStore
func (s *SQLiteStore) Write(ctx context.Context, c Collection, payload json.RawMessage) error {
	if !c.IsValid() {
		return fmt.Errorf("unknown collection %q", c)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("collection %s: payload is not valid JSON", c)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, payload, updated_at, revision)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			revision = collections.revision + 1`,
		c.String(), string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert collection %s: %w", c, err)
	}

	slog.DebugContext(ctx, "Collection written to SQLite",
		"component", "storage",
		"collection", c.String(),
		"bytes", len(payload))

	return nil
}

// Revision returns how many times the collection has been overwritten.
func (s *SQLiteStore) Revision(ctx context.Context, c Collection) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT revision FROM collections WHERE name = ?`, c.String()).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select revision %s: %w", c, err)
	}
	return rev, nil
}
