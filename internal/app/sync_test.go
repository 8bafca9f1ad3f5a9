package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/mocks"
)

func serverQuotes(texts ...string) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(texts))
	for _, text := range texts {
		quotes = append(quotes, domain.Quote{Text: text, Category: domain.ServerCategory})
	}

	return quotes
}

func newTestEngine(t *testing.T, tr testRepo, source *mocks.MockRemoteQuoteSource, notifier *mocks.MockNotifier) *SyncEngine {
	t.Helper()

	cfg := SyncConfig{
		Source:     source,
		Repository: tr.repo,
		Metrics:    tr.metrics,
		Logger:     discardLogger(),
		Interval:   time.Hour,
	}

	if notifier != nil {
		cfg.Notifier = notifier
	}

	return NewSyncEngine(cfg)
}

func TestNewSyncEngine_Defaults(t *testing.T) {
	tr := newLoadedRepo(t)
	engine := NewSyncEngine(SyncConfig{
		Source:     mocks.NewMockRemoteQuoteSource(t),
		Repository: tr.repo,
	})

	assert.Equal(t, DefaultSyncInterval, engine.Interval())
	assert.Equal(t, DefaultSyncMaxItems, engine.maxItems)
	assert.Equal(t, domain.ServerCategory, engine.serverCategory)
}

func TestNewSyncEngine_PanicsWithoutDependencies(t *testing.T) {
	tr := newLoadedRepo(t)

	assert.Panics(t, func() { NewSyncEngine(SyncConfig{Repository: tr.repo}) })
	assert.Panics(t, func() { NewSyncEngine(SyncConfig{Source: mocks.NewMockRemoteQuoteSource(t)}) })
}

func TestSyncEngine_MergeChangesCollection(t *testing.T) {
	tr := newLoadedRepo(t, domain.Quote{Text: "A", Category: "x"}, domain.Quote{Text: "B", Category: "y"})

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(serverQuotes("B", "C"), nil).Once()

	notifier := mocks.NewMockNotifier(t)
	notifier.EXPECT().OnNotify(mock.Anything, "Quotes updated from server!").Return().Once()
	notifier.EXPECT().OnCollectionChanged(mock.Anything).Return().Once()

	result, err := newTestEngine(t, tr, source, notifier).SyncNow(t.Context())

	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 2, Changed: true, Total: 3}, result)
	assert.Equal(t, []domain.Quote{
		{Text: "B", Category: domain.ServerCategory},
		{Text: "C", Category: domain.ServerCategory},
		{Text: "A", Category: "x"},
	}, tr.repo.GetAll())
	assert.InDelta(t, 1, testutil.ToFloat64(tr.metrics.SyncCycles.WithLabelValues(SyncResultChanged)), 0)
}

func TestSyncEngine_UnchangedDoesNotWriteOrNotify(t *testing.T) {
	existing := serverQuotes("R1", "R2")
	tr := newLoadedRepo(t, existing...)

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(serverQuotes("R1", "R2"), nil).Once()

	// No expectations: any callback fails the test.
	notifier := mocks.NewMockNotifier(t)

	// A marker value that any save would overwrite.
	require.NoError(t, tr.kv.Set(t.Context(), "quotes", []byte("untouched")))

	result, err := newTestEngine(t, tr, source, notifier).SyncNow(t.Context())

	require.NoError(t, err)
	assert.False(t, result.Changed)

	raw, err := tr.kv.Get(t.Context(), "quotes")
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(raw), "no write when merge result equals local")
	assert.InDelta(t, 1, testutil.ToFloat64(tr.metrics.SyncCycles.WithLabelValues(SyncResultUnchanged)), 0)
}

func TestSyncEngine_CapsAndRecategorizes(t *testing.T) {
	tr := newLoadedRepo(t)

	fetched := make([]domain.Quote, 0, 100)
	for i := range 100 {
		fetched = append(fetched, domain.Quote{Text: string(rune('a' + i%26)) + string(rune('A'+i/26)), Category: "whatever"})
	}

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(fetched, nil).Once()

	notifier := mocks.NewMockNotifier(t)
	notifier.EXPECT().OnNotify(mock.Anything, UpdatedFromServerMessage).Return().Once()
	notifier.EXPECT().OnCollectionChanged(mock.Anything).Return().Once()

	result, err := newTestEngine(t, tr, source, notifier).SyncNow(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Fetched)

	all := tr.repo.GetAll()
	require.Len(t, all, 5)

	for i, q := range all {
		assert.Equal(t, fetched[i].Text, q.Text)
		assert.Equal(t, domain.ServerCategory, q.Category)
	}
}

func TestSyncEngine_EmptyRemoteEndsCycle(t *testing.T) {
	tr := newLoadedRepo(t, domain.Quote{Text: "A", Category: "x"})

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return([]domain.Quote{}, nil).Once()

	result, err := newTestEngine(t, tr, source, mocks.NewMockNotifier(t)).SyncNow(t.Context())

	require.NoError(t, err)
	assert.Equal(t, SyncResult{Total: 1}, result)
	assert.InDelta(t, 1, testutil.ToFloat64(tr.metrics.SyncCycles.WithLabelValues(SyncResultEmpty)), 0)
}

func TestSyncEngine_FetchFailureLeavesStateUntouched(t *testing.T) {
	before := []domain.Quote{{Text: "A", Category: "x"}}
	tr := newLoadedRepo(t, before...)

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).
		Return(nil, domain.NewSyncFetchError("remote-quotes", errors.New("connection refused"))).Once()

	_, err := newTestEngine(t, tr, source, mocks.NewMockNotifier(t)).SyncNow(t.Context())

	require.ErrorIs(t, err, domain.ErrSyncFetch)

	step, ok := FailedStep(err)
	require.True(t, ok)
	assert.Equal(t, StepPerform, step)
	assert.Equal(t, before, tr.repo.GetAll())
	assert.InDelta(t, 1, testutil.ToFloat64(tr.metrics.SyncCycles.WithLabelValues(SyncResultFailed)), 0)
}

func TestSyncEngine_PersistenceFailureStillNotifies(t *testing.T) {
	boom := errors.New("disk full")

	kv := mocks.NewMockKeyValueStore(t)
	kv.EXPECT().Get(mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	kv.EXPECT().Set(mock.Anything, "quotes", mock.Anything).Return(boom).Once()

	repo := NewQuoteRepository(RepositoryConfig{
		Store:        NewPersistentStore(kv, StoreKeys{}),
		SeedDisabled: true,
		Logger:       discardLogger(),
	})
	require.NoError(t, repo.Load(t.Context()))

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(serverQuotes("R"), nil).Once()

	notifier := mocks.NewMockNotifier(t)
	notifier.EXPECT().OnNotify(mock.Anything, UpdatedFromServerMessage).Return().Once()
	notifier.EXPECT().OnCollectionChanged(mock.Anything).Return().Once()

	engine := NewSyncEngine(SyncConfig{Source: source, Repository: repo, Notifier: notifier, Logger: discardLogger()})

	_, err := engine.SyncNow(t.Context())

	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, serverQuotes("R"), repo.GetAll())
}

func TestSyncEngine_SingleFlight(t *testing.T) {
	tr := newLoadedRepo(t)

	started := make(chan struct{})
	release := make(chan struct{})

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		close(started)
		<-release

		return serverQuotes("R"), nil
	}).Once()

	notifier := mocks.NewMockNotifier(t)
	notifier.EXPECT().OnNotify(mock.Anything, UpdatedFromServerMessage).Return().Once()
	notifier.EXPECT().OnCollectionChanged(mock.Anything).Return().Once()

	engine := newTestEngine(t, tr, source, notifier)

	done := make(chan SyncResult)

	go func() {
		result, err := engine.SyncNow(t.Context())
		assert.NoError(t, err)
		done <- result
	}()

	<-started

	skipped, err := engine.SyncNow(t.Context())
	require.NoError(t, err)
	assert.True(t, skipped.Skipped)

	close(release)

	first := <-done
	assert.False(t, first.Skipped)
	assert.True(t, first.Changed)
	assert.InDelta(t, 1, testutil.ToFloat64(tr.metrics.SyncCycles.WithLabelValues(SyncResultSkipped)), 0)
}

func TestSyncEngine_RunSyncsImmediatelyAndStops(t *testing.T) {
	tr := newLoadedRepo(t)

	var calls atomic.Int32

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		calls.Add(1)

		return []domain.Quote{}, nil
	})

	engine := NewSyncEngine(SyncConfig{
		Source:     source,
		Repository: tr.repo,
		Logger:     discardLogger(),
		Interval:   10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)

	go func() { errCh <- engine.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSyncEngine_RunSurvivesFailures(t *testing.T) {
	tr := newLoadedRepo(t)

	var calls atomic.Int32

	source := mocks.NewMockRemoteQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		calls.Add(1)

		return nil, domain.NewSyncFetchError("remote", errors.New("timeout"))
	})

	engine := NewSyncEngine(SyncConfig{
		Source:     source,
		Repository: tr.repo,
		Logger:     discardLogger(),
		Interval:   5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(t.Context())
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		_ = engine.Run(ctx)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
}
