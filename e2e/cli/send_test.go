package cli_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/requst/e2e/harness"
	"github.com/artpar/requst/e2e/testserver"
	"github.com/artpar/requst/internal/core"
)

func TestCLI_SendCommand(t *testing.T) {
	handlers := testserver.Handlers{}

	h := harness.New(t, harness.Config{
		ServerHandlers: map[string]http.HandlerFunc{
			"/api/users": handlers.JSON(200, map[string]any{
				"message": "Hello from server",
				"users":   []string{"alice", "bob"},
			}),
			"/api/error": handlers.Error(500, "Internal Server Error"),
			"/api/echo":  handlers.Echo(),
		},
		Timeout: 5 * time.Second,
	})

	t.Run("GET request returns 200", func(t *testing.T) {
		result, err := h.CLI().Send("GET", h.ServerURL()+"/api/users")
		require.NoError(t, err)

		assert := harness.NewAssertions(t)
		assert.StatusLine(result.Stdout, "200")
		assert.OutputContains(result.Stdout, "Hello from server", "alice")
		assert.NoError(result.Stdout)
	})

	t.Run("GET request with JSON output mode", func(t *testing.T) {
		result, err := h.CLI().SendJSON("GET", h.ServerURL()+"/api/users")
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Stdout), &out))
		assert.Equal(t, float64(200), out["status"])
	})

	t.Run("POST request sends the JSON body", func(t *testing.T) {
		_, err := h.CLI().SendWithBody("POST", h.ServerURL()+"/api/echo", `{"name":"test"}`)
		require.NoError(t, err)

		last := h.Server().LastRequest()
		require.NotNil(t, last)
		assert.JSONEq(t, `{"name":"test"}`, string(last.Body))
		assert.Equal(t, "application/json", last.Headers.Get("Content-Type"))
	})

	t.Run("request with custom headers", func(t *testing.T) {
		_, err := h.CLI().SendWithHeaders("GET", h.ServerURL()+"/api/echo", map[string]string{
			"X-Custom": "custom-value",
		})
		require.NoError(t, err)
		assert.Equal(t, "custom-value", h.Server().LastRequest().Headers.Get("X-Custom"))
	})

	t.Run("denied headers never leave the client", func(t *testing.T) {
		_, err := h.CLI().SendWithHeaders("GET", h.ServerURL()+"/api/echo", map[string]string{
			"Cookie": "forged=1",
		})
		require.NoError(t, err)
		assert.Empty(t, h.Server().LastRequest().Headers.Get("Cookie"))
	})

	t.Run("handles server error gracefully", func(t *testing.T) {
		result, err := h.CLI().Send("GET", h.ServerURL()+"/api/error")
		require.NoError(t, err)

		assert := harness.NewAssertions(t)
		assert.StatusLine(result.Stdout, "500")
		assert.OutputContains(result.Stdout, "Internal Server Error")
	})

	t.Run("every send is recorded once", func(t *testing.T) {
		result, err := h.CLI().HistoryJSON()
		require.NoError(t, err)

		var items []core.HistoryItem
		require.NoError(t, json.Unmarshal([]byte(result.Stdout), &items))
		// The two users sends are the same request.
		assert.Len(t, items, 5)
	})
}

func TestCLI_SendCommand_AllMethods(t *testing.T) {
	handlers := testserver.Handlers{}

	h := harness.New(t, harness.Config{
		ServerHandlers: map[string]http.HandlerFunc{
			"/api/test":   handlers.Echo(),
			"/api/empty":  handlers.Status(http.StatusNoContent),
			"/api/tagged": handlers.Headers(http.StatusAccepted, map[string]string{"X-Trace-Id": "t-42"}),
		},
		Timeout: 5 * time.Second,
	})

	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

	for _, method := range methods {
		t.Run(method+" request", func(t *testing.T) {
			result, err := h.CLI().Send(method, h.ServerURL()+"/api/test")
			require.NoError(t, err)

			assert := harness.NewAssertions(t)
			assert.StatusLine(result.Stdout, "200")
			require.Equal(t, method, h.Server().LastRequest().Method)
		})
	}

	t.Run("empty response has no body section", func(t *testing.T) {
		result, err := h.CLI().Send("DELETE", h.ServerURL()+"/api/empty")
		require.NoError(t, err)

		assert := harness.NewAssertions(t)
		assert.StatusLine(result.Stdout, "204")
		assert.OutputNotContains(result.Stdout, "Body:")
	})

	t.Run("response headers are lowercased", func(t *testing.T) {
		result, err := h.CLI().Send("GET", h.ServerURL()+"/api/tagged")
		require.NoError(t, err)

		assert := harness.NewAssertions(t)
		assert.StatusLine(result.Stdout, "202")
		assert.OutputContains(result.Stdout, "x-trace-id: t-42")
	})
}

func TestCLI_SendCommand_Errors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		h := harness.New(t, harness.Config{Timeout: 5 * time.Second})

		result, err := h.CLI().Send("GET", "http://127.0.0.1:1/nonexistent")
		require.NoError(t, err)

		assert := harness.NewAssertions(t)
		assert.StatusLine(result.Stdout, "Error")
		assert.OutputContains(result.Stderr, "refused")
	})

	t.Run("missing arguments", func(t *testing.T) {
		h := harness.New(t, harness.Config{Timeout: 5 * time.Second})

		_, err := h.CLI().Run("send")
		assert.Error(t, err)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		h := harness.New(t, harness.Config{Timeout: 5 * time.Second})

		result, err := h.CLI().SendWithBody("POST", "http://127.0.0.1:1/", "{oops")
		assert.Error(t, err)
		assert.Equal(t, 1, result.ExitCode)

		history, err := h.CLI().HistoryJSON()
		require.NoError(t, err)
		assert.Equal(t, "[]\n", history.Stdout)
	})
}
