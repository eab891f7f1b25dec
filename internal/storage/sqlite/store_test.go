package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/artpar/requst/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// TestSQLiteStore runs the standard store test suite against SQLite.
func TestSQLiteStore(t *testing.T) {
	storage.RunStoreTests(t, func() (storage.Store, func()) {
		store, err := NewInMemory()
		if err != nil {
			t.Fatalf("Failed to create in-memory store: %v", err)
		}
		return store, func() {
			store.Close()
		}
	})
}

// Additional SQLite-specific tests

type entry struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

func TestSQLiteStore_Persistence(t *testing.T) {
	t.Run("data persists to disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")

		store, err := New(path)
		require.NoError(t, err)
		key, err := store.Add(context.Background(), storage.History, entry{Name: "persisted"})
		require.NoError(t, err)
		require.NoError(t, store.Close())

		store2, err := New(path)
		require.NoError(t, err)
		defer store2.Close()

		got, err := storage.GetAs[entry](context.Background(), store2, storage.History, key)
		require.NoError(t, err)
		assert.Equal(t, "persisted", got.Name)
	})

	t.Run("reports the schema version", func(t *testing.T) {
		store, err := NewInMemory()
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, SchemaVersion, store.Version())
	})
}

func TestSQLiteStore_Upgrade(t *testing.T) {
	t.Run("creates missing stores and keeps existing rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "old.db")

		// A version 1 database only had history.
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec(`
			CREATE TABLE history (id INTEGER PRIMARY KEY AUTOINCREMENT, seq INTEGER NOT NULL, data TEXT NOT NULL);
			INSERT INTO history (id, seq, data) VALUES (7, 1, '{"id":7,"name":"old"}');
			PRAGMA user_version = 1;
		`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		store, err := New(path)
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, SchemaVersion, store.Version())

		got, err := storage.GetAs[entry](context.Background(), store, storage.History, storage.IntKey(7))
		require.NoError(t, err)
		assert.Equal(t, "old", got.Name)

		for _, name := range storage.Stores {
			_, err := store.GetAll(context.Background(), name)
			assert.NoError(t, err, "store %s", name)
		}
	})

	t.Run("opens a database from a newer schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "new.db")

		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec("PRAGMA user_version = 9")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		store, err := New(path)
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, 9, store.Version())
	})
}

func TestSQLiteStore_Unavailable(t *testing.T) {
	t.Run("unopenable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "test.db")

		_, err := New(path)
		assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	})
}

func TestSQLiteStore_Close(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		store, err := NewInMemory()
		require.NoError(t, err)

		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})

	t.Run("transactions fail after close", func(t *testing.T) {
		store, err := NewInMemory()
		require.NoError(t, err)
		require.NoError(t, store.Close())

		err = store.RunTransaction(context.Background(), storage.All, storage.ReadWrite, func(tx storage.Tx) error {
			return nil
		})
		assert.ErrorIs(t, err, storage.ErrStoreClosed)
	})
}
