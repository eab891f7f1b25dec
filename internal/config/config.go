// Package config loads the user configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/requst/internal/headers"
	"github.com/artpar/requst/internal/theme"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "requst.db"

// Config holds the application configuration.
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	DatabasePath    string        `yaml:"database_path"`
	Timeout         time.Duration `yaml:"timeout"`
	FollowRedirects bool          `yaml:"follow_redirects"`
	DefaultTheme    string        `yaml:"default_theme"`
	LogLevel        string        `yaml:"log_level"`
	// UnsafeHeaders replaces the denied header list when set. An empty list
	// allows every header.
	UnsafeHeaders *[]string `yaml:"unsafe_headers"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:         "~/.requst",
		Timeout:         30 * time.Second,
		FollowRedirects: true,
		DefaultTheme:    theme.Default,
		LogLevel:        "warn",
	}
}

// DefaultPath returns ~/.config/requst/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "requst", "config.yaml")
}

// Load reads the configuration at path, or at DefaultPath when path is empty.
// Values missing from the file keep their defaults. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Database returns the database path with ~ expanded.
func (c Config) Database() string {
	if c.DatabasePath != "" {
		return ExpandHome(c.DatabasePath)
	}
	return filepath.Join(ExpandHome(c.DataDir), DatabaseFile)
}

// HeaderPolicy returns the policy for UnsafeHeaders.
func (c Config) HeaderPolicy() headers.Policy {
	if c.UnsafeHeaders == nil {
		return headers.DefaultPolicy()
	}
	return headers.NewPolicy(*c.UnsafeHeaders)
}

// ExpandHome replaces a leading ~ with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
