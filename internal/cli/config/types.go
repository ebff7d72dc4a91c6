// Package config provides configuration management for the duckgs CLI.
//
// Configuration is resolved from four layers, highest priority first:
// command-line flags, DUCKGS_-prefixed environment variables, a
// duckgs.yaml config file, and built-in defaults.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	// Bucket is the default gs:// URL bound to the {bucket} placeholder.
	Bucket string `koanf:"bucket"`

	CacheDir         string        `koanf:"cache_dir"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	CacheFingerprint string        `koanf:"cache_fingerprint"`
	NoCache          bool          `koanf:"no_cache"`

	// DatabasePath is the DuckDB database file (empty for in-memory).
	DatabasePath string `koanf:"database"`

	// StatePath is the SQLite query-history database.
	StatePath string `koanf:"state_path"`

	// GCS HMAC credentials for gs:// access. Support ${ENV_VAR} expansion
	// so secrets stay out of the config file.
	GCSKeyID  string `koanf:"gcs_key_id"`
	GCSSecret string `koanf:"gcs_secret"`

	Threads     int    `koanf:"threads"`
	MemoryLimit string `koanf:"memory_limit"`

	OutputFormat string `koanf:"format"`
	Silent       bool   `koanf:"silent"`
	Verbose      bool   `koanf:"verbose"`
}

// Default configuration values. Paths are relative to the user's home
// directory and expanded at load time.
const (
	DefaultCacheDir  = "~/.duckgs/cache"
	DefaultStateFile = "~/.duckgs/state.db"
	DefaultFormat    = "auto" // Auto-detect: TTY=table, non-TTY=markdown
)
