// Package harness provides E2E testing utilities for requst.
package harness

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/requst/e2e/testserver"
)

// E2EHarness is the main test orchestrator. Every harness gets its own data
// directory, so commands run against a real database that outlives each run.
type E2EHarness struct {
	t          *testing.T
	server     *testserver.Server
	dataDir    string
	configPath string
	timeout    time.Duration
}

// Config configures the harness.
type Config struct {
	ServerHandlers map[string]http.HandlerFunc
	Timeout        time.Duration // Default: 5 seconds
	// ExtraConfig is appended to the generated config file.
	ExtraConfig string
}

// New creates a new E2E harness.
func New(t *testing.T, cfg Config) *E2EHarness {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	root := t.TempDir()
	h := &E2EHarness{
		t:          t,
		dataDir:    filepath.Join(root, "data"),
		configPath: filepath.Join(root, "config.yaml"),
		timeout:    cfg.Timeout,
	}

	config := fmt.Sprintf("data_dir: %s\ntimeout: %s\nlog_level: error\n%s", h.dataDir, cfg.Timeout, cfg.ExtraConfig)
	if err := os.WriteFile(h.configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if len(cfg.ServerHandlers) > 0 {
		h.server = testserver.New(cfg.ServerHandlers)
		t.Cleanup(h.server.Close)
	}
	return h
}

// ServerURL returns the test server URL.
func (h *E2EHarness) ServerURL() string {
	if h.server == nil {
		return ""
	}
	return h.server.URL
}

// Server returns the recording test server.
func (h *E2EHarness) Server() *testserver.Server {
	return h.server
}

// DataDir returns the data directory used by every run.
func (h *E2EHarness) DataDir() string {
	return h.dataDir
}

// Timeout returns the configured timeout.
func (h *E2EHarness) Timeout() time.Duration {
	return h.timeout
}

// T returns the testing.T instance.
func (h *E2EHarness) T() *testing.T {
	return h.t
}

// CLI returns a CLI runner for this harness.
func (h *E2EHarness) CLI() *CLIRunner {
	return &CLIRunner{harness: h}
}
