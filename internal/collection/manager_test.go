package collection

import (
	"context"
	"testing"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	store, err := sqlite.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store)
}

func names(items []core.CollectionItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestManager_SaveToCollection(t *testing.T) {
	t.Run("saving the same name twice appends a counter", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		source := core.CollectionItem{Name: "Get User", Method: "GET", URL: "https://api.example.com/users/1"}

		first, err := m.SaveToCollection(ctx, source, "")
		require.NoError(t, err)
		second, err := m.SaveToCollection(ctx, source, "")
		require.NoError(t, err)
		third, err := m.SaveToCollection(ctx, source, "")
		require.NoError(t, err)

		assert.Equal(t, "Get User", first.Name)
		assert.Equal(t, "Get User (1)", second.Name)
		assert.Equal(t, "Get User (2)", third.Name)
	})

	t.Run("prefers the trimmed proposed name", func(t *testing.T) {
		m := newManager(t)
		item, err := m.SaveToCollection(context.Background(), core.CollectionItem{Name: "old", URL: "https://x"}, "  Fresh  ")
		require.NoError(t, err)
		assert.Equal(t, "Fresh", item.Name)
	})

	t.Run("falls back to the url", func(t *testing.T) {
		m := newManager(t)
		item, err := m.SaveToCollection(context.Background(), core.CollectionItem{URL: "https://x"}, " ")
		require.NoError(t, err)
		assert.Equal(t, "https://x", item.Name)
	})

	t.Run("strips the source id and parent", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		group, err := m.CreateGroup(ctx, "G")
		require.NoError(t, err)

		item, err := m.SaveToCollection(ctx, core.CollectionItem{ID: 500, Name: "r", ParentID: core.ParentRef(group.ID)}, "")
		require.NoError(t, err)
		assert.NotEqual(t, int64(500), item.ID)
		assert.Nil(t, item.ParentID)
		assert.Equal(t, core.ItemRequest, item.Type)
	})

	t.Run("copies request fields from history", func(t *testing.T) {
		h := core.HistoryItem{
			ID: 3, Name: "n", Method: "POST", URL: "https://x", Body: "{}",
			Headers: []core.HeaderEntry{{Key: "A", Value: "1", Enabled: true}}, BearerToken: "t",
		}
		item := FromHistory(h)
		assert.Zero(t, item.ID)
		assert.Equal(t, "POST", item.Method)
		assert.Equal(t, h.Headers, item.Headers)
		assert.Equal(t, "t", item.BearerToken)
		assert.Equal(t, core.ItemRequest, item.Type)
	})
}

func TestManager_Groups(t *testing.T) {
	t.Run("creates a root group", func(t *testing.T) {
		m := newManager(t)
		group, err := m.CreateGroup(context.Background(), "  Users ")
		require.NoError(t, err)
		assert.Equal(t, "Users", group.Name)
		assert.True(t, group.IsGroup())
		assert.Nil(t, group.ParentID)
	})

	t.Run("rejects an empty group name", func(t *testing.T) {
		m := newManager(t)
		_, err := m.CreateGroup(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestManager_Edit(t *testing.T) {
	t.Run("renames in place", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		a, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "a"}, "")
		_, _ = m.SaveToCollection(ctx, core.CollectionItem{Name: "b"}, "")

		_, err := m.Rename(ctx, a.ID, "z")
		require.NoError(t, err)

		items, err := m.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "b"}, names(items))
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		a, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "a"}, "")

		_, err := m.Rename(ctx, a.ID, "")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("moves a request into a group and updates its url", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		group, _ := m.CreateGroup(ctx, "G")
		req, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "r", URL: "https://old"}, "")

		url := "https://new"
		got, err := m.Edit(ctx, req.ID, Changes{Name: "r", URL: &url, SetParent: true, ParentID: core.ParentRef(group.ID)})
		require.NoError(t, err)
		assert.Equal(t, "https://new", got.URL)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, group.ID, *got.ParentID)
	})

	t.Run("groups only change their name", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		outer, _ := m.CreateGroup(ctx, "outer")
		inner, _ := m.CreateGroup(ctx, "inner")

		url := "https://ignored"
		got, err := m.Edit(ctx, inner.ID, Changes{Name: "renamed", URL: &url, SetParent: true, ParentID: core.ParentRef(outer.ID)})
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		assert.Empty(t, got.URL)
		assert.Nil(t, got.ParentID)
	})

	t.Run("rejects a parent that is not a group", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		a, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "a"}, "")
		b, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "b"}, "")

		_, err := m.Edit(ctx, a.ID, Changes{Name: "a", SetParent: true, ParentID: core.ParentRef(b.ID)})
		assert.ErrorIs(t, err, ErrInvalidReparent)
	})

	t.Run("returns not found for a missing item", func(t *testing.T) {
		m := newManager(t)
		_, err := m.Rename(context.Background(), 42, "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestManager_ReplaceLayout(t *testing.T) {
	t.Run("reparenting a group under its descendant is rejected", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		g, _ := m.CreateGroup(ctx, "G")
		d, _ := m.CreateGroup(ctx, "D")
		require.NoError(t, m.Move(ctx, d.ID, core.ParentRef(g.ID), 0))

		before, err := m.List(ctx)
		require.NoError(t, err)

		layout := make([]core.CollectionItem, len(before))
		copy(layout, before)
		for i := range layout {
			if layout[i].ID == g.ID {
				layout[i].ParentID = core.ParentRef(d.ID)
			}
		}

		err = m.ReplaceLayout(ctx, layout)
		assert.ErrorIs(t, err, ErrInvalidReparent)

		after, err := m.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("keeps ids and array order", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		a, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "a"}, "")
		b, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "b"}, "")

		require.NoError(t, m.ReplaceLayout(ctx, []core.CollectionItem{b, a}))

		items, err := m.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, names(items))
		assert.Equal(t, b.ID, items[0].ID)
	})

	t.Run("rejects a missing parent", func(t *testing.T) {
		m := newManager(t)
		err := m.ReplaceLayout(context.Background(), []core.CollectionItem{{ID: 1, Name: "a", ParentID: core.ParentRef(9)}})
		assert.ErrorIs(t, err, ErrInvalidReparent)
	})
}

func TestManager_Move(t *testing.T) {
	t.Run("places the item at the index among new siblings", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		g, _ := m.CreateGroup(ctx, "G")
		a, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "a"}, "")
		b, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "b"}, "")
		c, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "c"}, "")

		require.NoError(t, m.Move(ctx, a.ID, core.ParentRef(g.ID), 0))
		require.NoError(t, m.Move(ctx, b.ID, core.ParentRef(g.ID), 0))
		require.NoError(t, m.Move(ctx, c.ID, core.ParentRef(g.ID), 99))

		items, err := m.List(ctx)
		require.NoError(t, err)
		tree := BuildTree(items)
		require.Len(t, tree, 1)
		var children []string
		for _, n := range tree[0].Children {
			children = append(children, n.Item.Name)
		}
		assert.Equal(t, []string{"b", "a", "c"}, children)
	})

	t.Run("moving a group under itself is rejected", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		g, _ := m.CreateGroup(ctx, "G")

		err := m.Move(ctx, g.ID, core.ParentRef(g.ID), 0)
		assert.ErrorIs(t, err, ErrInvalidReparent)
	})
}

func TestManager_Delete(t *testing.T) {
	t.Run("deleting a group removes its descendants", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		outer, _ := m.CreateGroup(ctx, "outer")
		inner, _ := m.CreateGroup(ctx, "inner")
		leaf, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "leaf"}, "")
		keep, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "keep"}, "")

		require.NoError(t, m.Move(ctx, inner.ID, core.ParentRef(outer.ID), 0))
		require.NoError(t, m.Move(ctx, leaf.ID, core.ParentRef(inner.ID), 0))
		require.NoError(t, m.Delete(ctx, outer.ID))

		items, err := m.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, keep.ID, items[0].ID)
	})

	t.Run("deleting a request leaves siblings", func(t *testing.T) {
		m := newManager(t)
		ctx := context.Background()
		a, _ := m.SaveToCollection(ctx, core.CollectionItem{Name: "a"}, "")
		_, _ = m.SaveToCollection(ctx, core.CollectionItem{Name: "b"}, "")

		require.NoError(t, m.Delete(ctx, a.ID))
		items, _ := m.List(ctx)
		assert.Equal(t, []string{"b"}, names(items))
	})
}
