package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// Sync engine defaults.
const (
	DefaultSyncInterval = 60 * time.Second
	DefaultSyncMaxItems = 5

	// UpdatedFromServerMessage is raised whenever a sync cycle changes the collection.
	UpdatedFromServerMessage = "Quotes updated from server!"
)

// SyncResult describes one sync cycle.
type SyncResult struct {
	// Skipped is true when another cycle was already in flight.
	Skipped bool `json:"skipped"`

	// Fetched is the number of remote quotes kept after the item cap.
	Fetched int `json:"fetched"`

	// Changed is true when the merge replaced the local collection.
	Changed bool `json:"changed"`

	// Total is the collection size after the cycle.
	Total int `json:"total"`
}

// SyncConfig holds the sync engine dependencies and tuning.
type SyncConfig struct {
	Source     ports.RemoteQuoteSource
	Repository *QuoteRepository
	Notifier   ports.Notifier
	Executor   *Executor
	Metrics    *Metrics
	Logger     *slog.Logger

	Interval       time.Duration
	MaxItems       int
	ServerCategory string
}

// SyncEngine periodically pulls remote quotes and merges them into the
// repository, remote winning on equal text. Cycles are single-flight: a cycle
// requested while another is running is skipped, not queued.
type SyncEngine struct {
	source         ports.RemoteQuoteSource
	repo           *QuoteRepository
	notifier       ports.Notifier
	executor       *Executor
	metrics        *Metrics
	logger         *slog.Logger
	interval       time.Duration
	maxItems       int
	serverCategory string

	running atomic.Bool
}

// NewSyncEngine creates a sync engine. Source and Repository are required.
func NewSyncEngine(cfg SyncConfig) *SyncEngine {
	if cfg.Source == nil {
		panic("app: remote quote source is required")
	}

	if cfg.Repository == nil {
		panic("app: quote repository is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(logger)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultSyncMaxItems
	}

	category := cfg.ServerCategory
	if category == "" {
		category = domain.ServerCategory
	}

	return &SyncEngine{
		source:         cfg.Source,
		repo:           cfg.Repository,
		notifier:       cfg.Notifier,
		executor:       executor,
		metrics:        cfg.Metrics,
		logger:         logger.With(slog.String("component", "app.SyncEngine")),
		interval:       interval,
		maxItems:       maxItems,
		serverCategory: category,
	}
}

// Interval returns the configured tick period.
func (e *SyncEngine) Interval() time.Duration {
	return e.interval
}

// Run performs one cycle immediately and then one per interval until ctx is
// canceled. Cycle failures are logged and never stop the loop.
func (e *SyncEngine) Run(ctx context.Context) error {
	e.logger.InfoContext(ctx, "sync engine started", slog.Duration("interval", e.interval))

	e.tick(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "sync engine stopped")

			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *SyncEngine) tick(ctx context.Context) {
	_, err := e.SyncNow(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.WarnContext(ctx, "sync cycle failed", slog.Any("error", err))
	}
}

// SyncNow runs one cycle unless one is already in flight, in which case it
// returns a skipped result without error.
func (e *SyncEngine) SyncNow(ctx context.Context) (SyncResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.InfoContext(ctx, "sync cycle skipped, previous cycle still running")
		e.metrics.observeCycle(SyncResultSkipped, 0)

		return SyncResult{Skipped: true}, nil
	}
	defer e.running.Store(false)

	start := time.Now()
	result, err := e.cycle(ctx)

	outcome := SyncResultUnchanged

	switch {
	case err != nil:
		outcome = SyncResultFailed
	case result.Fetched == 0:
		outcome = SyncResultEmpty
	case result.Changed:
		outcome = SyncResultChanged
	}

	e.metrics.observeCycle(outcome, time.Since(start).Seconds())

	return result, err
}

// cycle fetches (perform), caps and maps (verify), merges and persists
// (archive) and reports (respond).
func (e *SyncEngine) cycle(ctx context.Context) (SyncResult, error) {
	var changed bool

	op := Operation[struct{}, []domain.Quote, []domain.Quote, SyncResult]{
		Name: "sync_quotes",
		Validate: func(ctx context.Context, _ struct{}) error {
			return ctx.Err()
		},
		Perform: func(ctx context.Context, _ struct{}) ([]domain.Quote, error) {
			return e.source.FetchQuotes(ctx)
		},
		Verify: func(ctx context.Context, _ struct{}, fetched []domain.Quote) ([]domain.Quote, error) {
			return e.prepareRemote(ctx, fetched), nil
		},
		Archive: func(ctx context.Context, _ struct{}, remote []domain.Quote) error {
			if len(remote) == 0 {
				return nil
			}

			var err error

			changed, err = e.repo.ApplyRemote(ctx, remote)
			if changed {
				e.notify(ctx)
			}

			return err
		},
		Respond: func(_ context.Context, _ struct{}, remote []domain.Quote) (SyncResult, error) {
			return SyncResult{
				Fetched: len(remote),
				Changed: changed,
				Total:   e.repo.Len(),
			}, nil
		},
	}

	return Execute(ctx, e.executor, op, struct{}{})
}

// prepareRemote keeps the first maxItems fetched quotes, files them under the
// server category and drops any with blank text.
func (e *SyncEngine) prepareRemote(ctx context.Context, fetched []domain.Quote) []domain.Quote {
	if len(fetched) > e.maxItems {
		fetched = fetched[:e.maxItems]
	}

	remote := make([]domain.Quote, 0, len(fetched))

	for _, q := range fetched {
		if strings.TrimSpace(q.Text) == "" {
			logging.FromContext(ctx).DebugContext(ctx, "dropping remote quote with blank text")

			continue
		}

		remote = append(remote, domain.Quote{Text: q.Text, Category: e.serverCategory})
	}

	return remote
}

func (e *SyncEngine) notify(ctx context.Context) {
	if e.notifier == nil {
		return
	}

	e.notifier.OnNotify(ctx, UpdatedFromServerMessage)
	e.notifier.OnCollectionChanged(ctx)
}
