// Package config loads symdex project configuration.
//
// Settings come from built-in defaults, then .symdex/config.yml (or .yaml) in
// the project root, then SYMDEX_* environment variables, with later sources
// winning. Nested keys map to environment variables with underscores, so
// analysis.workers is SYMDEX_ANALYSIS_WORKERS.
package config

import "path/filepath"

// DirName is the per-project directory holding config and the index database.
const DirName = ".symdex"

// Config represents the complete symdex configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Watch    WatchConfig    `yaml:"watch" mapstructure:"watch"`
}

// AnalysisConfig controls the extraction pipeline.
type AnalysisConfig struct {
	Workers              int  `yaml:"workers" mapstructure:"workers"`                               // parallel unit analysis
	CacheSize            int  `yaml:"cache_size" mapstructure:"cache_size"`                         // cached unit results; 0 disables
	MaxDiagnostics       int  `yaml:"max_diagnostics" mapstructure:"max_diagnostics"`               // 0 means unlimited
	ReportSupersededDocs bool `yaml:"report_superseded_docs" mapstructure:"report_superseded_docs"` // report doc blocks replaced by a nearer one
	CrossCheck           bool `yaml:"cross_check" mapstructure:"cross_check"`                       // compare item boundaries with tree-sitter while indexing
}

// PathsConfig defines which files make up the crate.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source units
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// StorageConfig defines where index snapshots are persisted.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"` // relative paths are resolved against the project root
}

// SearchConfig controls the full-text doc index.
type SearchConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Limit   int  `yaml:"limit" mapstructure:"limit"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Workers:        4,
			CacheSize:      1024,
			MaxDiagnostics: 1000,
		},
		Paths: PathsConfig{
			Include: []string{"**/*.rs"},
			Ignore: []string{
				"target/**",
				".git/**",
				DirName + "/**",
			},
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(DirName, "index.db"),
		},
		Search: SearchConfig{
			Enabled: true,
			Limit:   15,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// DBPath returns the snapshot database path for a project rooted at rootDir.
func (c *Config) DBPath(rootDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(rootDir, c.Storage.DBPath)
}
