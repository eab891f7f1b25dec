package settings

import (
	"context"
	"testing"

	"github.com/artpar/requst/internal/storage/sqlite"
	"github.com/artpar/requst/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTheme(t *testing.T) {
	store, err := sqlite.NewInMemory()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	t.Run("defaults when nothing is stored", func(t *testing.T) {
		got, err := Theme(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, theme.Default, got.Name)

		name, err := StoredTheme(ctx, store)
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("stores the canonical name", func(t *testing.T) {
		got, err := SetTheme(ctx, store, "vs code dark")
		require.NoError(t, err)
		assert.Equal(t, "VS Code Dark", got.Name)

		name, err := StoredTheme(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, "VS Code Dark", name)
	})

	t.Run("rejects unknown themes", func(t *testing.T) {
		_, err := SetTheme(ctx, store, "Neon")
		assert.ErrorIs(t, err, ErrUnknownTheme)
	})

	t.Run("unknown stored names fall back to the default", func(t *testing.T) {
		require.NoError(t, PutTheme(ctx, store, "Neon"))
		got, err := Theme(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, theme.Default, got.Name)
	})
}
