package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .symdex/config.yml and .symdex/config.yaml
// - Config file values merge with defaults
// - Environment variables override config file values and defaults
// - An explicit config file must exist
// - LoadConfig() returns error for malformed YAML and invalid values
// - Validate() rejects each invalid field with its sentinel error
// - Validate() reports every problem when several fields are invalid
// - DBPath resolves relative paths against the project root

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	symdexDir := filepath.Join(dir, DirName)
	require.NoError(t, os.MkdirAll(symdexDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(symdexDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 1024, cfg.Analysis.CacheSize)
	assert.Equal(t, 1000, cfg.Analysis.MaxDiagnostics)
	assert.False(t, cfg.Analysis.ReportSupersededDocs)
	assert.False(t, cfg.Analysis.CrossCheck)

	assert.Equal(t, []string{"**/*.rs"}, cfg.Paths.Include)
	assert.Equal(t, []string{"target/**", ".git/**", ".symdex/**"}, cfg.Paths.Ignore)
	assert.Equal(t, filepath.Join(".symdex", "index.db"), cfg.Storage.DBPath)
	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, 15, cfg.Search.Limit)
	assert.Equal(t, 500, cfg.Watch.DebounceMS)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
analysis:
  workers: 8
  report_superseded_docs: true
paths:
  include:
    - "src/**/*.rs"
  ignore:
    - "src/generated/**"
search:
  limit: 40
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.ReportSupersededDocs)
	assert.Equal(t, []string{"src/**/*.rs"}, cfg.Paths.Include)
	assert.Equal(t, []string{"src/generated/**"}, cfg.Paths.Ignore)
	assert.Equal(t, 40, cfg.Search.Limit)

	// Unset keys keep their defaults.
	assert.Equal(t, 1024, cfg.Analysis.CacheSize)
	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, 500, cfg.Watch.DebounceMS)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "storage:\n  db_path: /tmp/elsewhere.db\n")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.Storage.DBPath)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.DBPath(dir))
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: 8\nsearch:\n  enabled: true\n")

	t.Setenv("SYMDEX_ANALYSIS_WORKERS", "2")
	t.Setenv("SYMDEX_SEARCH_ENABLED", "false")
	t.Setenv("SYMDEX_WATCH_DEBOUNCE_MS", "50")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.Workers)
	assert.False(t, cfg.Search.Enabled)
	assert.Equal(t, 50, cfg.Watch.DebounceMS)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  cross_check: true\n"), 0644))

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Analysis.CrossCheck)

	_, err = NewFileLoader(filepath.Join(dir, "missing.yml")).Load()
	assert.Error(t, err)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: [unclosed\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: 0\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero workers", func(c *Config) { c.Analysis.Workers = 0 }, ErrInvalidWorkers},
		{"negative cache", func(c *Config) { c.Analysis.CacheSize = -1 }, ErrInvalidCacheSize},
		{"negative diagnostics cap", func(c *Config) { c.Analysis.MaxDiagnostics = -5 }, ErrInvalidMaxDiagnostics},
		{"no include", func(c *Config) { c.Paths.Include = nil }, ErrEmptyInclude},
		{"bad glob", func(c *Config) { c.Paths.Ignore = []string{"src/[oops"} }, ErrInvalidPattern},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "  " }, ErrEmptyDBPath},
		{"zero limit", func(c *Config) { c.Search.Limit = 0 }, ErrInvalidSearchLimit},
		{"huge limit", func(c *Config) { c.Search.Limit = 1000 }, ErrInvalidSearchLimit},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMS = -1 }, ErrInvalidDebounce},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analysis.Workers = -1
	cfg.Search.Limit = 0
	cfg.Storage.DBPath = ""

	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "validation failed")
	assert.Contains(t, msg, "workers must be positive")
	assert.Contains(t, msg, "limit must be between 1 and 100")
	assert.Contains(t, msg, "db_path is required")
}

func TestDBPath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/work/crate", ".symdex", "index.db"), cfg.DBPath("/work/crate"))
}
