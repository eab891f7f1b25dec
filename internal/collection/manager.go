// Package collection manages saved requests and the groups that organize them.
package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/storage"
	"github.com/hashicorp/go-hclog"
)

// Common errors
var (
	ErrNotFound        = errors.New("collection item not found")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrInvalidReparent = errors.New("invalid reparent")
	ErrInvalidLayout   = errors.New("invalid collection layout")
)

// Changes describes an edit of a collection item. Groups only take Name.
type Changes struct {
	Name string
	// URL replaces the request URL when non-nil.
	URL *string
	// SetParent moves the item under ParentID; a nil ParentID is the root.
	SetParent bool
	ParentID  *int64
}

// Manager reads and writes the collections store.
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

// NewManager creates a collection manager over store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromHistory converts a history entry into an unsaved request item.
func FromHistory(h core.HistoryItem) core.CollectionItem {
	return core.CollectionItem{
		Name:        h.Name,
		Method:      h.Method,
		URL:         h.URL,
		Body:        h.Body,
		Headers:     slices.Clone(h.Headers),
		QueryParams: slices.Clone(h.QueryParams),
		BearerToken: h.BearerToken,
		Type:        core.ItemRequest,
	}
}

// List returns the layout in storage order.
func (m *Manager) List(ctx context.Context) ([]core.CollectionItem, error) {
	items, err := storage.GetAllAs[core.CollectionItem](ctx, m.store, storage.Collections)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return items, nil
}

// SaveToCollection stores source as a new root request. The name is the
// trimmed proposedName, else the source name, else its URL, made unique with
// a " (n)" suffix.
func (m *Manager) SaveToCollection(ctx context.Context, source core.CollectionItem, proposedName string) (core.CollectionItem, error) {
	base := strings.TrimSpace(proposedName)
	if base == "" {
		base = source.Name
	}
	if base == "" {
		base = source.URL
	}

	item := source
	item.ID = 0
	item.Type = core.ItemRequest
	item.ParentID = nil

	err := m.store.RunTransaction(ctx, []storage.Name{storage.Collections}, storage.ReadWrite, func(tx storage.Tx) error {
		existing, err := storage.GetAllAs[core.CollectionItem](ctx, tx, storage.Collections)
		if err != nil {
			return err
		}
		item.Name = UniqueName(existing, base)
		key, err := tx.Add(ctx, storage.Collections, item)
		if err != nil {
			return err
		}
		item.ID, _ = key.Int()
		return nil
	})
	if err != nil {
		return core.CollectionItem{}, fmt.Errorf("failed to save to collection: %w", err)
	}
	m.logger.Debug("request saved to collection", "id", item.ID, "name", item.Name)
	return item, nil
}

// CreateGroup adds an empty root group.
func (m *Manager) CreateGroup(ctx context.Context, name string) (core.CollectionItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.CollectionItem{}, ErrInvalidName
	}

	group := core.CollectionItem{Name: name, Type: core.ItemGroup}
	key, err := m.store.Add(ctx, storage.Collections, group)
	if err != nil {
		return core.CollectionItem{}, fmt.Errorf("failed to create group: %w", err)
	}
	group.ID, _ = key.Int()
	return group, nil
}

// Rename changes the name of an item in place.
func (m *Manager) Rename(ctx context.Context, id int64, name string) (core.CollectionItem, error) {
	return m.Edit(ctx, id, Changes{Name: name})
}

// Edit applies changes to the item with id. A move is validated against the
// current layout and rejected with ErrInvalidReparent.
func (m *Manager) Edit(ctx context.Context, id int64, changes Changes) (core.CollectionItem, error) {
	name := strings.TrimSpace(changes.Name)
	if name == "" {
		return core.CollectionItem{}, ErrInvalidName
	}

	var updated core.CollectionItem
	err := m.store.RunTransaction(ctx, []storage.Name{storage.Collections}, storage.ReadWrite, func(tx storage.Tx) error {
		items, err := storage.GetAllAs[core.CollectionItem](ctx, tx, storage.Collections)
		if err != nil {
			return err
		}
		item, ok := Find(items, id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}

		item.Name = name
		if !item.IsGroup() {
			if changes.URL != nil {
				item.URL = *changes.URL
			}
			if changes.SetParent {
				if err := CheckReparent(items, id, changes.ParentID); err != nil {
					return err
				}
				item.ParentID = changes.ParentID
			}
		}

		if _, err := tx.Put(ctx, storage.Collections, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidReparent) {
			m.logger.Warn("reparent rejected", "id", id, "error", err)
		}
		return core.CollectionItem{}, fmt.Errorf("failed to edit collection item: %w", err)
	}
	return updated, nil
}

// ReplaceLayout replaces the whole collection array in one transaction,
// keeping ids. An invalid layout is rejected and nothing changes.
func (m *Manager) ReplaceLayout(ctx context.Context, layout []core.CollectionItem) error {
	if err := ValidateLayout(layout); err != nil {
		m.logger.Warn("layout rejected", "error", err)
		return err
	}

	err := m.store.RunTransaction(ctx, []storage.Name{storage.Collections}, storage.ReadWrite, func(tx storage.Tx) error {
		if err := tx.Clear(ctx, storage.Collections); err != nil {
			return err
		}
		for _, item := range layout {
			if _, err := tx.Put(ctx, storage.Collections, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace layout: %w", err)
	}
	return nil
}

// Move attaches id under parent (nil for root) at index among its new
// siblings and stores the resulting layout.
func (m *Manager) Move(ctx context.Context, id int64, parent *int64, index int) error {
	items, err := m.List(ctx)
	if err != nil {
		return err
	}
	layout, err := MoveItem(items, id, parent, index)
	if err != nil {
		if errors.Is(err, ErrInvalidReparent) {
			m.logger.Warn("move rejected", "id", id, "error", err)
		}
		return err
	}
	return m.ReplaceLayout(ctx, layout)
}

// Delete removes the item with id. Deleting a group removes everything below
// it. Missing items are not an error.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	err := m.store.RunTransaction(ctx, []storage.Name{storage.Collections}, storage.ReadWrite, func(tx storage.Tx) error {
		items, err := storage.GetAllAs[core.CollectionItem](ctx, tx, storage.Collections)
		if err != nil {
			return err
		}
		ids := append([]int64{id}, Descendants(items, id)...)
		for _, target := range ids {
			if err := tx.Delete(ctx, storage.Collections, storage.IntKey(target)); err != nil {
				return err
			}
		}
		if len(ids) > 1 {
			m.logger.Debug("group deleted with descendants", "id", id, "removed", len(ids))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection item: %w", err)
	}
	return nil
}
