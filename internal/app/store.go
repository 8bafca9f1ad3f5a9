package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// Default key names, matching what a browser build of the app writes to localStorage.
const (
	DefaultQuotesKey = "quotes"
	DefaultFilterKey = "selectedCategory"
)

// StoreKeys names the two entries the persistent store owns.
type StoreKeys struct {
	Quotes string
	Filter string
}

// PersistentStore serializes the collection and the selected filter onto a
// KeyValueStore. It holds no state of its own.
type PersistentStore struct {
	kv   ports.KeyValueStore
	keys StoreKeys
}

// NewPersistentStore creates a store over kv. Empty key names fall back to the defaults.
func NewPersistentStore(kv ports.KeyValueStore, keys StoreKeys) *PersistentStore {
	if kv == nil {
		panic("app: key-value store is required")
	}

	if keys.Quotes == "" {
		keys.Quotes = DefaultQuotesKey
	}

	if keys.Filter == "" {
		keys.Filter = DefaultFilterKey
	}

	return &PersistentStore{kv: kv, keys: keys}
}

// Keys returns the resolved key names.
func (s *PersistentStore) Keys() StoreKeys {
	return s.keys
}

// SaveQuotes writes the full collection under the quotes key, replacing any prior value.
func (s *PersistentStore) SaveQuotes(ctx context.Context, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	data, err := json.Marshal(quotes)
	if err != nil {
		return domain.NewPersistenceError("encode", s.keys.Quotes, err)
	}

	err = s.kv.Set(ctx, s.keys.Quotes, data)
	if err != nil {
		return domain.NewPersistenceError("save", s.keys.Quotes, err)
	}

	return nil
}

// LoadQuotes reads the stored collection. found is false when the key has never
// been written, which is distinct from a stored empty collection.
func (s *PersistentStore) LoadQuotes(ctx context.Context) (quotes []domain.Quote, found bool, err error) {
	data, found, err := s.get(ctx, s.keys.Quotes)
	if err != nil || !found {
		return nil, found, err
	}

	err = json.Unmarshal(data, &quotes)
	if err != nil {
		return nil, false, domain.NewPersistenceError("decode", s.keys.Quotes, err)
	}

	if quotes == nil {
		quotes = []domain.Quote{}
	}

	return quotes, true, nil
}

// SaveFilter writes the selected filter as a bare string.
func (s *PersistentStore) SaveFilter(ctx context.Context, selection string) error {
	err := s.kv.Set(ctx, s.keys.Filter, []byte(selection))
	if err != nil {
		return domain.NewPersistenceError("save", s.keys.Filter, err)
	}

	return nil
}

// LoadFilter reads the selected filter. found is false when none was ever saved.
func (s *PersistentStore) LoadFilter(ctx context.Context) (selection string, found bool, err error) {
	data, found, err := s.get(ctx, s.keys.Filter)
	if err != nil || !found {
		return "", found, err
	}

	return string(data), true, nil
}

func (s *PersistentStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, domain.NewPersistenceError("load", key, fmt.Errorf("reading store: %w", err))
	}

	return data, true, nil
}
