package journeys_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artpar/requst/e2e/harness"
	"github.com/artpar/requst/e2e/testserver"
	"github.com/artpar/requst/internal/backup"
	"github.com/artpar/requst/internal/core"
)

func historyItems(t *testing.T, h *harness.E2EHarness) []core.HistoryItem {
	t.Helper()
	result, err := h.CLI().HistoryJSON()
	require.NoError(t, err)
	var items []core.HistoryItem
	require.NoError(t, json.Unmarshal([]byte(result.Stdout), &items))
	return items
}

func TestJourney_ComposeOrganizeRestore(t *testing.T) {
	handlers := testserver.Handlers{}
	h := harness.New(t, harness.Config{
		ServerHandlers: map[string]http.HandlerFunc{
			"/login": handlers.SetCookie("sid", "s3cret"),
			"/me":    handlers.RequireCookie("sid"),
			"/users": handlers.Echo(),
		},
	})
	cli := h.CLI()
	assert := harness.NewAssertions(t)

	// Global headers apply to every send.
	_, err := cli.Run("headers", "set", "X-Env:staging")
	require.NoError(t, err)

	result, err := cli.Send("GET", h.ServerURL()+"/users", "-q", "page=2", "--name", "List users")
	require.NoError(t, err)
	assert.StatusLine(result.Stdout, "200")
	last := h.Server().LastRequest()
	require.NotNil(t, last)
	require.Equal(t, "staging", last.Headers.Get("X-Env"))
	require.Equal(t, "2", last.Query.Get("page"))

	// Credentials survive between runs.
	_, err = cli.Send("POST", h.ServerURL()+"/login")
	require.NoError(t, err)
	result, err = cli.Send("GET", h.ServerURL()+"/me")
	require.NoError(t, err)
	assert.OutputContains(result.Stdout, "s3cret")
	me := h.Server().RequestsTo("/me")
	require.Len(t, me, 1)
	require.Contains(t, me[0].Headers.Get("Cookie"), "sid=s3cret")

	items := historyItems(t, h)
	require.Len(t, items, 3)
	var users core.HistoryItem
	for _, item := range items {
		if item.Name == "List users" {
			users = item
		}
	}
	require.NotZero(t, users.ID)

	// Organize: a group with the saved request inside.
	_, err = cli.Run("collections", "group", "Users API")
	require.NoError(t, err)
	result, err = cli.Run("history", "save", fmt.Sprint(users.ID))
	require.NoError(t, err)
	assert.OutputContains(result.Stdout, `"List users"`)

	// Ids are assigned in order: the group is 1, the request 2.
	_, err = cli.Run("collections", "move", "2", "--parent", "1")
	require.NoError(t, err)
	_, err = cli.Run("collections", "move", "1", "--parent", "2")
	require.Error(t, err)

	result, err = cli.Run("collections", "list")
	require.NoError(t, err)
	assert.OutputContains(result.Stdout, "[Users API]", "  GET List users")

	_, err = cli.Run("theme", "set", "Dracula")
	require.NoError(t, err)

	// Back up, wipe, restore.
	backupDir := filepath.Join(h.DataDir(), "backups")
	result, err = cli.Run("export", "--out", backupDir)
	require.NoError(t, err)
	files, err := filepath.Glob(filepath.Join(backupDir, "requst_backup_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	doc, err := backup.Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Collections, 2)
	require.Equal(t, "Dracula", doc.Theme)

	_, err = cli.Run("collections", "delete", "1", "--yes")
	require.NoError(t, err)
	_, err = cli.Run("headers", "clear", "--yes")
	require.NoError(t, err)
	_, err = cli.Run("theme", "set", "Sky")
	require.NoError(t, err)

	_, err = cli.Run("import", files[0], "--yes")
	require.NoError(t, err)

	result, err = cli.Run("collections", "list")
	require.NoError(t, err)
	assert.OutputContains(result.Stdout, "[Users API]", "  GET List users")

	result, err = cli.Run("headers", "list")
	require.NoError(t, err)
	assert.OutputContains(result.Stdout, "X-Env: staging")

	result, err = cli.Run("theme", "get")
	require.NoError(t, err)
	assert.OutputContains(result.Stdout, "Dracula")
	require.Len(t, historyItems(t, h), 3)
}

func TestJourney_RejectsCorruptBackup(t *testing.T) {
	h := harness.New(t, harness.Config{})
	cli := h.CLI()

	_, err := cli.Run("collections", "group", "Keep me")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"history":[],"globalHeaders":[]}`), 0o644))

	_, err = cli.Run("import", path, "--yes")
	require.ErrorIs(t, err, backup.ErrCorruptBackup)

	result, err := cli.Run("collections", "list")
	require.NoError(t, err)
	harness.NewAssertions(t).OutputContains(result.Stdout, "[Keep me]")
}
