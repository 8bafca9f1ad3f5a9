package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// QuoteRepository is the single owner of the in-memory collection and the
// selected filter. Every mutation persists synchronously while holding the
// write lock, so store writes land in mutation order.
//
// When a write to the store fails the in-memory change is kept and the
// PersistenceError is returned to the caller.
type QuoteRepository struct {
	mu       sync.RWMutex
	quotes   []domain.Quote
	filter   string
	store    *PersistentStore
	seed     []domain.Quote
	randIntN func(n int) int
	metrics  *Metrics
	notifier ports.Notifier
	logger   *slog.Logger
}

// RepositoryConfig holds the repository dependencies.
type RepositoryConfig struct {
	Store *PersistentStore

	// Seed is installed by Load when nothing has been stored yet.
	// Nil means domain.DefaultQuotes.
	Seed []domain.Quote

	// SeedDisabled starts from an empty collection instead of Seed.
	SeedDisabled bool

	Metrics *Metrics
	Logger  *slog.Logger

	// Notifier, when set, hears OnCollectionChanged after every local
	// mutation. Sync cycles raise their own callbacks.
	Notifier ports.Notifier

	// RandIntN overrides the random source used by Random.
	RandIntN func(n int) int
}

// NewQuoteRepository creates an empty repository. Call Load before serving.
func NewQuoteRepository(cfg RepositoryConfig) *QuoteRepository {
	if cfg.Store == nil {
		panic("app: persistent store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seed := cfg.Seed
	if seed == nil {
		seed = domain.DefaultQuotes()
	}

	if cfg.SeedDisabled {
		seed = []domain.Quote{}
	}

	randIntN := cfg.RandIntN
	if randIntN == nil {
		randIntN = rand.IntN
	}

	return &QuoteRepository{
		quotes:   []domain.Quote{},
		filter:   domain.FilterAll,
		store:    cfg.Store,
		seed:     seed,
		randIntN: randIntN,
		metrics:  cfg.Metrics,
		notifier: cfg.Notifier,
		logger:   logger.With(slog.String("component", "app.QuoteRepository")),
	}
}

// Load reads the collection and the filter from the store. An absent collection
// becomes the seed quotes and an absent filter becomes "all". Seeded state is
// not written back until the first mutation.
func (r *QuoteRepository) Load(ctx context.Context) error {
	type loadedQuotes struct {
		quotes []domain.Quote
		found  bool
	}

	type loadedFilter struct {
		selection string
		found     bool
	}

	q, f, err := Parallel2(ctx,
		func(ctx context.Context) (loadedQuotes, error) {
			quotes, found, err := r.store.LoadQuotes(ctx)

			return loadedQuotes{quotes: quotes, found: found}, err
		},
		func(ctx context.Context) (loadedFilter, error) {
			selection, found, err := r.store.LoadFilter(ctx)

			return loadedFilter{selection: selection, found: found}, err
		},
	)
	if err != nil {
		return fmt.Errorf("loading persisted state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if q.found {
		r.quotes = q.quotes
	} else {
		r.quotes = append([]domain.Quote{}, r.seed...)
	}

	r.filter = domain.FilterAll
	if f.found && f.selection != "" {
		r.filter = f.selection
	}

	r.metrics.setCollectionSize(len(r.quotes))

	logging.FromContext(ctx).InfoContext(ctx, "quote collection loaded",
		slog.Int("count", len(r.quotes)),
		slog.Bool("seeded", !q.found),
		slog.String("filter", r.filter),
	)

	return nil
}

// GetAll returns a copy of the collection.
func (r *QuoteRepository) GetAll() []domain.Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(make([]domain.Quote, 0, len(r.quotes)), r.quotes...)
}

// Len returns the number of quotes held.
func (r *QuoteRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.quotes)
}

// Add validates and appends one quote, then persists the collection.
func (r *QuoteRepository) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	defer r.collectionChanged(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.quotes = append(r.quotes, q)

	return q, r.persistLocked(ctx)
}

// Append adds every quote in order, without dedup, then persists once.
func (r *QuoteRepository) Append(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	defer r.collectionChanged(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.quotes = append(r.quotes, quotes...)

	return r.persistLocked(ctx)
}

// ReplaceAll swaps the whole collection and persists it.
func (r *QuoteRepository) ReplaceAll(ctx context.Context, quotes []domain.Quote) error {
	defer r.collectionChanged(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.quotes = append(make([]domain.Quote, 0, len(quotes)), quotes...)

	return r.persistLocked(ctx)
}

// ApplyRemote merges remote into the current collection and replaces it when the
// result differs. Snapshot, merge, compare and replace share one critical section.
// It does not call the notifier; the sync engine does.
func (r *QuoteRepository) ApplyRemote(ctx context.Context, remote []domain.Quote) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := domain.Merge(r.quotes, remote)
	if domain.Equal(merged, r.quotes) {
		return false, nil
	}

	r.quotes = merged

	return true, r.persistLocked(ctx)
}

// CategoriesPresent lists distinct categories in first-seen order.
func (r *QuoteRepository) CategoriesPresent() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.Categories(r.quotes)
}

// FilterByCategory returns the quotes matching selection; "all" matches everything.
func (r *QuoteRepository) FilterByCategory(selection string) []domain.Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.FilterByCategory(r.quotes, selection)
}

// Random returns a uniformly chosen quote.
func (r *QuoteRepository) Random() (domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.quotes) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quote", "")
	}

	return r.quotes[r.randIntN(len(r.quotes))], nil
}

// SelectedFilter returns the current filter selection.
func (r *QuoteRepository) SelectedFilter() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter
}

// SetFilter changes the selection and persists it.
func (r *QuoteRepository) SetFilter(ctx context.Context, selection string) error {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return domain.NewValidationError("category", "must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.filter = selection

	err := r.store.SaveFilter(ctx, selection)
	if err != nil {
		r.logger.WarnContext(ctx, "filter kept in memory only", slog.Any("error", err))

		return fmt.Errorf("saving filter: %w", err)
	}

	return nil
}

func (r *QuoteRepository) persistLocked(ctx context.Context) error {
	r.metrics.setCollectionSize(len(r.quotes))

	err := r.store.SaveQuotes(ctx, r.quotes)
	if err != nil {
		r.logger.WarnContext(ctx, "collection kept in memory only",
			slog.Int("count", len(r.quotes)),
			slog.Any("error", err),
		)

		return fmt.Errorf("saving quotes: %w", err)
	}

	return nil
}

// collectionChanged runs after the write lock is released. The in-memory
// change stands even when persisting it failed, so readers are told either way.
func (r *QuoteRepository) collectionChanged(ctx context.Context) {
	if r.notifier == nil {
		return
	}

	r.notifier.OnCollectionChanged(ctx)
}
