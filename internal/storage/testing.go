package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests runs the standard store test suite against any Store implementation.
// Use this to verify that a Store implementation correctly implements the interface.
func RunStoreTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("Add", func(t *testing.T) {
		runAddTests(t, newStore)
	})
	t.Run("Get", func(t *testing.T) {
		runGetTests(t, newStore)
	})
	t.Run("GetAll", func(t *testing.T) {
		runGetAllTests(t, newStore)
	})
	t.Run("Put", func(t *testing.T) {
		runPutTests(t, newStore)
	})
	t.Run("Delete", func(t *testing.T) {
		runDeleteTests(t, newStore)
	})
	t.Run("Transaction", func(t *testing.T) {
		runTransactionTests(t, newStore)
	})
}

type testRecord struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type testSetting struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func runAddTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("assigns unique ids", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		seen := make(map[int64]bool)
		for i := 0; i < 10; i++ {
			key, err := store.Add(ctx, History, testRecord{Name: "req"})
			require.NoError(t, err)
			id, ok := key.Int()
			require.True(t, ok)
			assert.False(t, seen[id], "Duplicate ID generated")
			seen[id] = true
		}
	})

	t.Run("writes the assigned id into the record", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		key, err := store.Add(ctx, Collections, testRecord{Name: "Users"})
		require.NoError(t, err)

		got, err := GetAs[testRecord](ctx, store, Collections, key)
		require.NoError(t, err)
		id, _ := key.Int()
		assert.Equal(t, testRecord{ID: id, Name: "Users"}, got)
	})

	t.Run("does not reuse ids after clear", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		first, err := store.Add(ctx, GlobalHeaders, testRecord{Name: "a"})
		require.NoError(t, err)
		require.NoError(t, store.Clear(ctx, GlobalHeaders))

		second, err := store.Add(ctx, GlobalHeaders, testRecord{Name: "a"})
		require.NoError(t, err)
		a, _ := first.Int()
		b, _ := second.Int()
		assert.Greater(t, b, a)
	})

	t.Run("rejects a duplicate explicit key", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Add(ctx, UISettings, testSetting{ID: "theme", Name: "Dark"})
		require.NoError(t, err)
		_, err = store.Add(ctx, UISettings, testSetting{ID: "theme", Name: "Sky"})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("requires a key for keyed stores", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Add(context.Background(), UISettings, testSetting{Name: "Dark"})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects non-object records", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Add(context.Background(), History, []string{"a"})
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("rejects unknown stores", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Add(context.Background(), Name("nope"), testRecord{})
		assert.ErrorIs(t, err, ErrUnknownStore)
	})
}

func runGetTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("returns not found for missing key", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Get(context.Background(), History, IntKey(999))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reads string keys", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Put(ctx, UISettings, testSetting{ID: "theme", Name: "Dracula"})
		require.NoError(t, err)

		got, err := GetAs[testSetting](ctx, store, UISettings, StringKey("theme"))
		require.NoError(t, err)
		assert.Equal(t, "Dracula", got.Name)
	})

	t.Run("rejects a key of the wrong kind", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Get(context.Background(), UISettings, IntKey(1))
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = store.Get(context.Background(), History, StringKey("x"))
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func runGetAllTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("returns empty for a new store", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		all, err := store.GetAll(context.Background(), History)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("keeps insertion order across explicit ids", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		for _, r := range []testRecord{{ID: 30, Name: "c"}, {ID: 10, Name: "a"}, {ID: 20, Name: "b"}} {
			_, err := store.Put(ctx, Collections, r)
			require.NoError(t, err)
		}

		all, err := GetAllAs[testRecord](ctx, store, Collections)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].Name, all[1].Name, all[2].Name})
	})

	t.Run("stores are independent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Add(ctx, History, testRecord{Name: "h"})
		require.NoError(t, err)

		all, err := store.GetAll(ctx, Collections)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func runPutTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("replaces by id and keeps position", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		first, err := store.Add(ctx, Collections, testRecord{Name: "one"})
		require.NoError(t, err)
		_, err = store.Add(ctx, Collections, testRecord{Name: "two"})
		require.NoError(t, err)

		id, _ := first.Int()
		_, err = store.Put(ctx, Collections, testRecord{ID: id, Name: "uno"})
		require.NoError(t, err)

		all, err := GetAllAs[testRecord](ctx, store, Collections)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "uno", all[0].Name)
		assert.Equal(t, "two", all[1].Name)
	})

	t.Run("assigns an id when missing", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		key, err := store.Put(context.Background(), History, testRecord{Name: "x"})
		require.NoError(t, err)
		_, ok := key.Int()
		assert.True(t, ok)
	})

	t.Run("accepts raw JSON records", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Put(ctx, History, json.RawMessage(`{"id":5,"name":"raw"}`))
		require.NoError(t, err)

		got, err := GetAs[testRecord](ctx, store, History, IntKey(5))
		require.NoError(t, err)
		assert.Equal(t, "raw", got.Name)
	})
}

func runDeleteTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("removes the record", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		key, err := store.Add(ctx, History, testRecord{Name: "x"})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, History, key))

		_, err = store.Get(ctx, History, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ignores missing keys", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		assert.NoError(t, store.Delete(context.Background(), History, IntKey(42)))
	})

	t.Run("clear empties only the named store", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Add(ctx, History, testRecord{Name: "h"})
		require.NoError(t, err)
		_, err = store.Add(ctx, Collections, testRecord{Name: "c"})
		require.NoError(t, err)
		require.NoError(t, store.Clear(ctx, History))

		h, _ := store.GetAll(ctx, History)
		c, _ := store.GetAll(ctx, Collections)
		assert.Empty(t, h)
		assert.Len(t, c, 1)
	})
}

func runTransactionTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("commits writes across stores", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		err := store.RunTransaction(ctx, All, ReadWrite, func(tx Tx) error {
			if _, err := tx.Add(ctx, History, testRecord{Name: "h"}); err != nil {
				return err
			}
			_, err := tx.Put(ctx, UISettings, testSetting{ID: "theme", Name: "Dark"})
			return err
		})
		require.NoError(t, err)

		h, _ := store.GetAll(ctx, History)
		s, _ := store.GetAll(ctx, UISettings)
		assert.Len(t, h, 1)
		assert.Len(t, s, 1)
	})

	t.Run("rolls back everything on error", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Add(ctx, Collections, testRecord{Name: "keep"})
		require.NoError(t, err)

		boom := errors.New("boom")
		err = store.RunTransaction(ctx, All, ReadWrite, func(tx Tx) error {
			if err := tx.Clear(ctx, Collections); err != nil {
				return err
			}
			if _, err := tx.Add(ctx, History, testRecord{Name: "lost"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		c, _ := GetAllAs[testRecord](ctx, store, Collections)
		h, _ := store.GetAll(ctx, History)
		require.Len(t, c, 1)
		assert.Equal(t, "keep", c[0].Name)
		assert.Empty(t, h)
	})

	t.Run("read-only transactions refuse writes", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		err := store.RunTransaction(ctx, []Name{History}, ReadOnly, func(tx Tx) error {
			assert.Equal(t, ReadOnly, tx.Mode())
			_, err := tx.Add(ctx, History, testRecord{Name: "x"})
			return err
		})
		assert.ErrorIs(t, err, ErrReadOnly)
	})

	t.Run("stores outside the scope are refused", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		err := store.RunTransaction(ctx, []Name{History}, ReadWrite, func(tx Tx) error {
			_, err := tx.GetAll(ctx, Collections)
			return err
		})
		assert.ErrorIs(t, err, ErrStoreNotInScope)
	})

	t.Run("closed store is unusable", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.Close())
		_, err := store.GetAll(context.Background(), History)
		assert.ErrorIs(t, err, ErrStoreClosed)
	})
}
