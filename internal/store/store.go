// Package store is the local persistence layer. It replaces a browser's
// localStorage with a small SQLite database in the user's home so the
// player identity, active room and mark survive process restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("store")

// Store defines the interface for local key-value persistence.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type sqliteStore struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// DefaultPath places the database under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir = filepath.Join(dir, "minigame")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(dir, "minigame.db"), nil
}

// Open opens (and if needed creates) the settings database at path.
func Open(path string) (Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

// Get returns the stored value, or "" when the key has never been set.
func (s *sqliteStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := tracer.Start(ctx, "Store.Get")
	defer span.End()

	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces a value.
func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "Store.Set")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (s *sqliteStore) Delete(ctx context.Context, keys ...string) error {
	ctx, span := tracer.Start(ctx, "Store.Delete")
	defer span.End()

	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
