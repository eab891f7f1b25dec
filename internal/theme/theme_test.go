package theme

import (
	"strings"
	"testing"

	"github.com/artpar/requst/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"Default Light", "Sky", "Dark", "Solarized", "Dracula", "Gruvbox", "VS Code Dark",
	}, Names())
}

func TestLookup(t *testing.T) {
	t.Run("finds a theme ignoring case", func(t *testing.T) {
		got, ok := Lookup("  dracula ")
		require.True(t, ok)
		assert.Equal(t, "Dracula", got.Name)
		assert.Equal(t, "#282a36", got.Colors.Background)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, ok := Lookup("Neon")
		assert.False(t, ok)
	})

	t.Run("resolve falls back to the default", func(t *testing.T) {
		assert.Equal(t, Default, Resolve("Neon").Name)
		assert.Equal(t, "Gruvbox", Resolve("Gruvbox").Name)
	})
}

func TestDerivedProperties(t *testing.T) {
	c := Resolve("Solarized").Colors
	props := DerivedProperties(c)

	assert.Len(t, props, 39)
	assert.Equal(t, c.Background, props["--bg-color"])
	assert.Equal(t, c.Border, props["--list-group-item-hover-bg"])
	assert.Equal(t, "#ffffff", props["--btn-outline-danger-hover-color"])
	assert.Equal(t, c.Text, props["--badge-warning-color"])
	assert.Equal(t, c.Secondary, props["--text-muted-color"])
}

func TestMethodColor(t *testing.T) {
	assert.Equal(t, RoleSuccess, MethodColor("get"))
	assert.Equal(t, RoleWarning, MethodColor("POST"))
	assert.Equal(t, RoleInfo, MethodColor("PUT"))
	assert.Equal(t, RoleDanger, MethodColor("DELETE"))
	assert.Equal(t, RoleSecondary, MethodColor("PATCH"))

	c := Resolve(Default).Colors
	assert.Equal(t, c.Danger, c.Color(MethodColor("DELETE")))
}

func TestStyles(t *testing.T) {
	s := NewStyles(Resolve("Dark"))
	assert.True(t, strings.Contains(s.Method("GET"), "GET"))
	assert.True(t, strings.Contains(s.Status(200, "OK"), "200 OK"))
	assert.True(t, strings.Contains(s.Status(core.StatusError, ""), "Error"))
}
