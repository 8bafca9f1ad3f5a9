// Package sqlite provides the durable KeyValueStore backed by a single SQLite
// table, using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

const (
	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"

	defaultBusyTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

const upsert = `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Config holds the SQLite store settings.
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string

	// BusyTimeout bounds how long a write waits on a locked database.
	BusyTimeout time.Duration

	Logger *slog.Logger
}

// Store is a KeyValueStore over a kv table. Each Set is one upsert statement,
// so a key is replaced atomically.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// Open opens or creates the database at cfg.Path and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	if cfg.Path != MemoryPath {
		err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750)
		if err != nil {
			return nil, fmt.Errorf("sqlite: creating data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, busy.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	logger.InfoContext(ctx, "sqlite store ready", slog.String("path", cfg.Path))

	return &Store{db: db, path: cfg.Path, logger: logger}, nil
}

// Get implements ports.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}

	return value, nil
}

// Set implements ports.KeyValueStore.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx, upsert, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: set %q: %w", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "sqlite" }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return domain.NewUnavailableError("sqlite", strings.TrimPrefix(err.Error(), "sqlite: "))
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
