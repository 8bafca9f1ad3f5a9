// Package main is the entry point for the quote-keeper service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/http"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/storage/redis"
	"github.com/jsamuelsen/quote-keeper/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quote-keeper/internal/app"
	"github.com/jsamuelsen/quote-keeper/internal/platform/config"
	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
	"github.com/jsamuelsen/quote-keeper/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		Insecure:     cfg.Telemetry.Insecure,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	healthRegistry := ports.NewHealthRegistry()

	kv, closeStore, err := openStore(ctx, &cfg.Storage, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closeStore.Close(); closeErr != nil {
			logger.Error("store close error", slog.Any("error", closeErr))
		}
	}()

	if checker, ok := kv.(ports.HealthChecker); ok {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering store health check: %w", err)
		}
	}

	metrics := app.NewMetrics(prometheus.DefaultRegisterer)
	feed := app.NewNotificationFeed(app.DefaultNotificationCapacity)

	repo := app.NewQuoteRepository(app.RepositoryConfig{
		Store: app.NewPersistentStore(kv, app.StoreKeys{
			Quotes: cfg.Storage.Keys.Quotes,
			Filter: cfg.Storage.Keys.Filter,
		}),
		SeedDisabled: !cfg.Quotes.SeedDefaults,
		Metrics:      metrics,
		Logger:       logger,
		Notifier:     feed,
	})

	if err := repo.Load(ctx); err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Remote.BaseURL,
		ServiceName: cfg.Services.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	source := acl.NewPostsClient(acl.PostsClientConfig{
		Client:   httpClient,
		Path:     cfg.Services.Remote.Path,
		Category: cfg.Sync.ServerCategory,
		Logger:   logger,
	})

	var engine *app.SyncEngine

	serviceCfg := app.QuoteServiceConfig{
		Repository: repo,
		Feed:       feed,
		Logger:     logger,
	}

	if cfg.Sync.Enabled {
		engine = app.NewSyncEngine(app.SyncConfig{
			Source:         source,
			Repository:     repo,
			Notifier:       feed,
			Executor:       app.NewExecutor(logger),
			Metrics:        metrics,
			Logger:         logger,
			Interval:       cfg.Sync.Interval,
			MaxItems:       cfg.Sync.MaxItems,
			ServerCategory: cfg.Sync.ServerCategory,
		})
		serviceCfg.Syncer = engine

		// Remote outages report degraded; readiness stays up.
		if err := healthRegistry.Register(ports.NonCritical(source)); err != nil {
			return fmt.Errorf("registering remote source health check: %w", err)
		}
	}

	quoteService := app.NewQuoteService(serviceCfg)

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo,
		handlers.WithGatherer(prometheus.DefaultGatherer))
	quoteHandler := handlers.NewQuoteHandler(quoteService,
		handlers.WithMaxImportBytes(cfg.Server.MaxRequestSize))

	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		AuthConfig:    &cfg.Auth,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       http.DefaultRequestTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	if engine != nil {
		g.Go(func() error {
			return engine.Run(gctx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("service stopped: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}

// openStore builds the KeyValueStore selected by cfg.Driver. The returned
// closer releases the backend.
func openStore(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (ports.KeyValueStore, io.Closer, error) {
	switch cfg.Driver {
	case config.StorageDriverRedis:
		store, err := redis.Open(ctx, redis.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Prefix:      cfg.Redis.Prefix,
			DialTimeout: cfg.Redis.DialTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis store: %w", err)
		}

		return store, store, nil

	case config.StorageDriverMemory:
		logger.Warn("memory store selected, quotes will not survive a restart")

		store := memory.New()

		return store, store, nil

	default:
		store, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return store, store, nil
	}
}
