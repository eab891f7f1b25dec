package headers

import (
	"strings"
	"testing"

	"github.com/artpar/requst/internal/core"
	"github.com/stretchr/testify/assert"
)

func on(key, value string) core.HeaderEntry {
	return core.HeaderEntry{Key: key, Value: value, Enabled: true}
}

func TestMerge(t *testing.T) {
	t.Run("local value wins over global", func(t *testing.T) {
		got := Merge(
			[]core.HeaderEntry{on("Accept", "text/plain"), on("X-Team", "core")},
			[]core.HeaderEntry{on("Accept", "application/json")},
			"",
		)
		assert.Equal(t, map[string]string{"Accept": "application/json", "X-Team": "core"}, got)
	})

	t.Run("skips disabled and empty keys", func(t *testing.T) {
		got := Merge(
			[]core.HeaderEntry{{Key: "X-Off", Value: "1", Enabled: false}},
			[]core.HeaderEntry{on("", "orphan"), on("X-On", "1")},
			"",
		)
		assert.Equal(t, map[string]string{"X-On": "1"}, got)
	})

	t.Run("disabled local row does not override global", func(t *testing.T) {
		got := Merge(
			[]core.HeaderEntry{on("Accept", "text/plain")},
			[]core.HeaderEntry{{Key: "Accept", Value: "application/json", Enabled: false}},
			"",
		)
		assert.Equal(t, "text/plain", got["Accept"])
	})

	t.Run("overwrite is case sensitive", func(t *testing.T) {
		got := Merge(
			[]core.HeaderEntry{on("x-id", "global")},
			[]core.HeaderEntry{on("X-Id", "local")},
			"",
		)
		assert.Len(t, got, 2)
	})

	t.Run("bearer token cannot be overridden", func(t *testing.T) {
		got := Merge(
			[]core.HeaderEntry{on("Authorization", "Basic abc")},
			[]core.HeaderEntry{on("Authorization", "Token xyz")},
			"t0k",
		)
		assert.Equal(t, "Bearer t0k", got["Authorization"])
	})

	t.Run("bearer token replaces authorization in any case", func(t *testing.T) {
		got := Merge(nil, []core.HeaderEntry{on("authorization", "Basic override")}, "tok")
		assert.Equal(t, map[string]string{"Authorization": "Bearer tok"}, got)
	})

	t.Run("strips unsafe headers case-insensitively", func(t *testing.T) {
		got := Merge(
			[]core.HeaderEntry{on("user-agent", "me"), on("HOST", "x")},
			[]core.HeaderEntry{on("Cookie", "a=b"), on("Content-Type", "application/json")},
			"",
		)
		assert.Equal(t, map[string]string{"Content-Type": "application/json"}, got)
	})

	t.Run("never yields a denied name", func(t *testing.T) {
		var rows []core.HeaderEntry
		for _, name := range UnsafeHeaders {
			rows = append(rows, on(name, "v"), on(strings.ToLower(name), "v"), on(strings.ToUpper(name), "v"))
		}
		got := Merge(rows, rows, "")
		for key := range got {
			for _, denied := range UnsafeHeaders {
				assert.False(t, strings.EqualFold(key, denied), "denied header %q leaked", key)
			}
		}
		assert.Empty(t, got)
	})
}

func TestAssemble(t *testing.T) {
	t.Run("an overwrite moves the row to its latest position", func(t *testing.T) {
		got := DefaultPolicy().Assemble(
			[]core.HeaderEntry{on("A", "1"), on("B", "2")},
			[]core.HeaderEntry{on("C", "3"), on("A", "local")},
			"",
		)
		assert.Equal(t, []core.HeaderEntry{on("B", "2"), on("C", "3"), on("A", "local")}, got)
	})

	t.Run("bearer comes last", func(t *testing.T) {
		got := DefaultPolicy().Assemble(
			[]core.HeaderEntry{on("AUTHORIZATION", "g")},
			[]core.HeaderEntry{on("authorization", "l"), on("X-Id", "1")},
			"tok",
		)
		assert.Equal(t, []core.HeaderEntry{on("X-Id", "1"), on("Authorization", "Bearer tok")}, got)
	})
}

func TestWire(t *testing.T) {
	t.Run("later case variant wins", func(t *testing.T) {
		rows := DefaultPolicy().Assemble(
			[]core.HeaderEntry{on("x-id", "global")},
			[]core.HeaderEntry{on("X-Id", "local")},
			"",
		)
		assert.Equal(t, map[string]string{"X-Id": "local"}, Wire(rows))
	})

	t.Run("local wins over several global variants", func(t *testing.T) {
		rows := DefaultPolicy().Assemble(
			[]core.HeaderEntry{on("X-Id", "g1"), on("x-id", "g2")},
			[]core.HeaderEntry{on("X-Id", "local")},
			"",
		)
		assert.Equal(t, map[string]string{"X-Id": "local"}, Wire(rows))
	})

	t.Run("canonicalizes names", func(t *testing.T) {
		assert.Equal(t, map[string]string{"Content-Type": "text/plain"}, Wire([]core.HeaderEntry{on("content-type", "text/plain")}))
	})
}

func TestPolicy(t *testing.T) {
	t.Run("empty policy lets everything through", func(t *testing.T) {
		p := NewPolicy(nil)
		got := p.Merge(nil, []core.HeaderEntry{on("User-Agent", "requst")}, "")
		assert.Equal(t, "requst", got["User-Agent"])
		assert.Zero(t, p.Denied())
	})

	t.Run("custom names are denied", func(t *testing.T) {
		p := NewPolicy([]string{"X-Internal"})
		assert.False(t, p.Allows("x-internal"))
		assert.True(t, p.Allows("Cookie"))
	})

	t.Run("default policy covers the unsafe list", func(t *testing.T) {
		assert.Equal(t, len(UnsafeHeaders), DefaultPolicy().Denied())
	})
}

func TestFromGlobal(t *testing.T) {
	got := FromGlobal([]core.GlobalHeader{{ID: 3, KeyValue: on("A", "1")}})
	assert.Equal(t, []core.HeaderEntry{on("A", "1")}, got)
}
