package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quote-keeper/internal/domain"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testRepo struct {
	repo    *QuoteRepository
	kv      *memory.Store
	store   *PersistentStore
	metrics *Metrics
}

// newLoadedRepo builds a repository on a memory store holding quotes.
func newLoadedRepo(t *testing.T, quotes ...domain.Quote) testRepo {
	t.Helper()

	kv := memory.New()
	store := NewPersistentStore(kv, StoreKeys{})
	metrics := NewMetrics(prometheus.NewRegistry())

	if quotes == nil {
		quotes = []domain.Quote{}
	}

	require.NoError(t, store.SaveQuotes(t.Context(), quotes))

	repo := NewQuoteRepository(RepositoryConfig{
		Store:    store,
		Metrics:  metrics,
		Logger:   discardLogger(),
		RandIntN: func(n int) int { return n - 1 },
	})
	require.NoError(t, repo.Load(t.Context()))

	return testRepo{repo: repo, kv: kv, store: store, metrics: metrics}
}
