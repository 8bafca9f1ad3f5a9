// Package redis provides a KeyValueStore on Redis, for deployments where the
// quote collection should outlive the container filesystem.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "quote-keeper"

// Config holds the Redis connection settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Store is a KeyValueStore over plain Redis strings. SET replaces a key atomically.
type Store struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	store := NewWithClient(client, cfg.Prefix, cfg.Logger)
	store.logger.InfoContext(ctx, "redis store ready",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
	)

	return store, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}

// Get implements ports.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}

	return value, nil
}

// Set implements ports.KeyValueStore.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	err := s.client.Set(ctx, s.key(key), value, 0).Err()
	if err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "redis" }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil {
		return domain.NewUnavailableError("redis", err.Error())
	}

	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
