// Package app contains the quote use cases: the repository that owns the
// collection, the persistent store codec, the remote sync engine and the
// service facade the HTTP adapter calls.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
)

// ExportFilename is the suggested name for exported collections.
const ExportFilename = "quotes.json"

// Syncer triggers an on-demand sync cycle.
type Syncer interface {
	SyncNow(ctx context.Context) (SyncResult, error)
}

// QuoteService is the facade the presentation layer calls.
type QuoteService struct {
	repo   *QuoteRepository
	syncer Syncer
	feed   *NotificationFeed
	logger *slog.Logger
}

// QuoteServiceConfig contains the quote service dependencies.
type QuoteServiceConfig struct {
	Repository *QuoteRepository
	Syncer     Syncer
	Feed       *NotificationFeed
	Logger     *slog.Logger
}

// NewQuoteService creates a quote service. Repository is required.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Repository == nil {
		panic("app: quote repository is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	feed := cfg.Feed
	if feed == nil {
		feed = NewNotificationFeed(DefaultNotificationCapacity)
	}

	return &QuoteService{
		repo:   cfg.Repository,
		syncer: cfg.Syncer,
		feed:   feed,
		logger: logger.With(slog.String("component", "app.QuoteService")),
	}
}

// ListQuotes returns the quotes under category. An empty category means the
// currently selected filter, which is returned alongside the result.
func (s *QuoteService) ListQuotes(ctx context.Context, category string) ([]domain.Quote, string) {
	selection := strings.TrimSpace(category)
	if selection == "" {
		selection = s.repo.SelectedFilter()
	}

	quotes := s.repo.FilterByCategory(selection)

	logging.FromContext(ctx).DebugContext(ctx, "listing quotes",
		slog.String("category", selection),
		slog.Int("count", len(quotes)),
	)

	return quotes, selection
}

// AddQuote appends a quote entered by the user.
func (s *QuoteService) AddQuote(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := s.repo.Add(ctx, text, category)
	if err != nil {
		if domain.IsValidation(err) {
			return domain.Quote{}, err
		}

		return q, fmt.Errorf("adding quote: %w", err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "quote added", slog.String("category", q.Category))

	return q, nil
}

// RandomQuote picks one quote from the whole collection.
func (s *QuoteService) RandomQuote(_ context.Context) (domain.Quote, error) {
	return s.repo.Random()
}

// Categories lists the categories present, first-seen order.
func (s *QuoteService) Categories(_ context.Context) []string {
	return s.repo.CategoriesPresent()
}

// Count returns the collection size.
func (s *QuoteService) Count(_ context.Context) int {
	return s.repo.Len()
}

// SelectedFilter returns the persisted filter selection.
func (s *QuoteService) SelectedFilter(_ context.Context) string {
	return s.repo.SelectedFilter()
}

// SetFilter changes the filter selection.
func (s *QuoteService) SetFilter(ctx context.Context, selection string) error {
	return s.repo.SetFilter(ctx, selection)
}

// importItem keeps both fields as pointers so a missing key and an empty
// string can be told apart.
type importItem struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

// ImportQuotes parses a JSON array of {text, category} objects and appends all
// of them. Nothing is appended unless the whole document is valid.
func (s *QuoteService) ImportQuotes(ctx context.Context, r io.Reader) (int, error) {
	quotes, err := decodeImport(r)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "import rejected", slog.Any("error", err))

		return 0, err
	}

	err = s.repo.Append(ctx, quotes)
	if err != nil {
		return len(quotes), fmt.Errorf("importing quotes: %w", err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "quotes imported", slog.Int("count", len(quotes)))

	return len(quotes), nil
}

func decodeImport(r io.Reader) ([]domain.Quote, error) {
	var raw json.RawMessage

	dec := json.NewDecoder(r)

	err := dec.Decode(&raw)
	if err != nil {
		return nil, domain.NewImportError("malformed JSON", err)
	}

	// A file holds exactly one document.
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, domain.NewImportError("trailing data after JSON document", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, domain.NewImportError("expected a JSON array", nil)
	}

	var items []json.RawMessage

	err = json.Unmarshal(raw, &items)
	if err != nil {
		return nil, domain.NewImportError("malformed JSON", err)
	}

	quotes := make([]domain.Quote, 0, len(items))

	for i, item := range items {
		q, err := decodeImportItem(item)
		if err != nil {
			return nil, domain.NewImportError(fmt.Sprintf("item %d", i), err)
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

func decodeImportItem(item json.RawMessage) (domain.Quote, error) {
	if !strings.HasPrefix(strings.TrimSpace(string(item)), "{") {
		return domain.Quote{}, errors.New("expected an object")
	}

	var parsed importItem

	err := json.Unmarshal(item, &parsed)
	if err != nil {
		return domain.Quote{}, err
	}

	if parsed.Text == nil {
		return domain.Quote{}, errors.New("text must be a string")
	}

	if parsed.Category == nil {
		return domain.Quote{}, errors.New("category must be a string")
	}

	return domain.NewQuote(*parsed.Text, *parsed.Category)
}

// ExportQuotes writes the whole collection as 2-space indented JSON.
func (s *QuoteService) ExportQuotes(ctx context.Context, w io.Writer) error {
	quotes := s.repo.GetAll()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	err := enc.Encode(quotes)
	if err != nil {
		return fmt.Errorf("exporting quotes: %w", err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "quotes exported", slog.Int("count", len(quotes)))

	return nil
}

// SyncNow runs a sync cycle on demand.
func (s *QuoteService) SyncNow(ctx context.Context) (SyncResult, error) {
	if s.syncer == nil {
		return SyncResult{}, domain.NewUnavailableError("sync", "remote sync is disabled")
	}

	return s.syncer.SyncNow(ctx)
}

// Notifications returns the change version and recent notifications.
func (s *QuoteService) Notifications(_ context.Context) (uint64, []Notification) {
	return s.feed.Snapshot()
}
