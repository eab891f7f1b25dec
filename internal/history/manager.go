// Package history records sent requests and collapses exact resends into a
// single entry.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/storage"
	"github.com/hashicorp/go-hclog"
)

// Common errors
var (
	ErrNotFound  = errors.New("history entry not found")
	ErrInvalidID = errors.New("invalid history entry ID")
)

// Manager reads and writes the history store.
type Manager struct {
	store  storage.Store
	logger hclog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a history manager over store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Upsert records candidate. If an entry describing the same request already
// exists only its timestamp is refreshed; otherwise a new entry is added.
func (m *Manager) Upsert(ctx context.Context, candidate core.HistoryItem) (core.HistoryItem, error) {
	var saved core.HistoryItem
	err := m.store.RunTransaction(ctx, []storage.Name{storage.History}, storage.ReadWrite, func(tx storage.Tx) error {
		existing, err := storage.GetAllAs[core.HistoryItem](ctx, tx, storage.History)
		if err != nil {
			return err
		}

		for _, item := range existing {
			if item.SameRequest(candidate) {
				item.Timestamp = candidate.Timestamp
				if _, err := tx.Put(ctx, storage.History, item); err != nil {
					return err
				}
				saved = item
				m.logger.Debug("history entry touched", "id", item.ID)
				return nil
			}
		}

		candidate.ID = 0
		key, err := tx.Add(ctx, storage.History, candidate)
		if err != nil {
			return err
		}
		candidate.ID, _ = key.Int()
		saved = candidate
		m.logger.Debug("history entry added", "id", candidate.ID)
		return nil
	})
	if err != nil {
		return core.HistoryItem{}, fmt.Errorf("failed to upsert history: %w", err)
	}
	return saved, nil
}

// List returns every entry, newest first. Entries with equal timestamps keep
// their storage order.
func (m *Manager) List(ctx context.Context) ([]core.HistoryItem, error) {
	items, err := storage.GetAllAs[core.HistoryItem](ctx, m.store, storage.History)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	SortNewestFirst(items)
	return items, nil
}

// Get returns the entry with id.
func (m *Manager) Get(ctx context.Context, id int64) (core.HistoryItem, error) {
	if id <= 0 {
		return core.HistoryItem{}, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	item, err := storage.GetAs[core.HistoryItem](ctx, m.store, storage.History, storage.IntKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return core.HistoryItem{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return core.HistoryItem{}, fmt.Errorf("failed to get history entry: %w", err)
	}
	return item, nil
}

// Delete removes the entry with id. Missing entries are not an error.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if err := m.store.Delete(ctx, storage.History, storage.IntKey(id)); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

// SortNewestFirst orders items by timestamp, descending, in place.
func SortNewestFirst(items []core.HistoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}

// Filter returns the items whose name or URL contains query, ignoring case.
func Filter(items []core.HistoryItem, query string) []core.HistoryItem {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	var out []core.HistoryItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), q) || strings.Contains(strings.ToLower(item.URL), q) {
			out = append(out, item)
		}
	}
	return out
}
