// Package ports defines the contracts between the quote application and its
// adapters. The application layer depends only on these interfaces.
//
// Conventions:
//   - Context first on anything that may block
//   - Domain types in and out, never wire DTOs
//   - Failures are reported with the domain error taxonomy
package ports

import (
	"context"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
)

// KeyValueStore is the durable medium behind the persistent store.
// Each Set replaces a single key atomically; readers never see a partial value.
type KeyValueStore interface {
	// Get returns the stored bytes for key.
	// Returns domain.ErrNotFound if the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any prior value.
	Set(ctx context.Context, key string, value []byte) error
}

// RemoteQuoteSource fetches the remote half of a sync cycle.
type RemoteQuoteSource interface {
	// FetchQuotes returns remote quotes in source order, already mapped to the
	// server category. Transport and decode failures return domain.ErrSyncFetch.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)
}

// Notifier receives the two presentation callbacks raised after a sync cycle
// changes the collection.
type Notifier interface {
	// OnCollectionChanged signals that the visible collection must be re-rendered.
	OnCollectionChanged(ctx context.Context)

	// OnNotify delivers a short human-readable message.
	OnNotify(ctx context.Context, message string)
}
