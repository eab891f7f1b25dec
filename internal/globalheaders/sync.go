// Package globalheaders keeps the headers applied to every request in sync
// with the store.
package globalheaders

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/headers"
	"github.com/artpar/requst/internal/storage"
	"github.com/hashicorp/go-hclog"
)

// Sync holds the in-memory copy of the global headers.
type Sync struct {
	mu      sync.RWMutex
	store   storage.Store
	headers []core.GlobalHeader
	logger  hclog.Logger
}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Sync) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Sync over store. Call Load to read the stored headers.
func New(store storage.Store, opts ...Option) *Sync {
	s := &Sync{store: store, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load refreshes the in-memory list from the store. Rows without an
// "enabled" field are enabled.
func (s *Sync) Load(ctx context.Context) ([]core.GlobalHeader, error) {
	list, err := storage.GetAllAs[core.GlobalHeader](ctx, s.store, storage.GlobalHeaders)
	if err != nil {
		return nil, fmt.Errorf("failed to load global headers: %w", err)
	}

	s.mu.Lock()
	s.headers = list
	s.mu.Unlock()
	return slices.Clone(list), nil
}

// Set replaces the stored headers with rows in one transaction. Previous ids
// are discarded.
func (s *Sync) Set(ctx context.Context, rows []core.HeaderEntry) ([]core.GlobalHeader, error) {
	saved := make([]core.GlobalHeader, 0, len(rows))
	err := s.store.RunTransaction(ctx, []storage.Name{storage.GlobalHeaders}, storage.ReadWrite, func(tx storage.Tx) error {
		if err := tx.Clear(ctx, storage.GlobalHeaders); err != nil {
			return err
		}
		for _, row := range rows {
			h := core.GlobalHeader{KeyValue: row}
			key, err := tx.Add(ctx, storage.GlobalHeaders, h)
			if err != nil {
				return err
			}
			h.ID, _ = key.Int()
			saved = append(saved, h)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save global headers: %w", err)
	}

	s.mu.Lock()
	s.headers = saved
	s.mu.Unlock()
	s.logger.Debug("global headers replaced", "count", len(saved))
	return slices.Clone(saved), nil
}

// List returns the in-memory headers.
func (s *Sync) List() []core.GlobalHeader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.headers)
}

// Entries returns the in-memory headers as rows ready for merging.
func (s *Sync) Entries() []core.HeaderEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return headers.FromGlobal(s.headers)
}

// Reset empties the in-memory list without touching the store.
func (s *Sync) Reset() {
	s.mu.Lock()
	s.headers = nil
	s.mu.Unlock()
}
