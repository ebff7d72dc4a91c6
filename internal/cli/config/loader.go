package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Package-level koanf instance and config file tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // the loaded config, for access by commands
)

// SetCurrent stores the loaded config for later retrieval by commands.
func SetCurrent(cfg *Config) {
	currentConfig = cfg
}

// Current returns the config loaded for this invocation, or defaults when
// nothing was loaded (e.g. in tests).
func Current() *Config {
	if currentConfig != nil {
		return currentConfig
	}
	return &Config{
		CacheDir:     expandHome(DefaultCacheDir),
		StatePath:    expandHome(DefaultStateFile),
		OutputFormat: DefaultFormat,
	}
}

// findConfigFile finds the config file to use.
// Priority: explicit path > ./duckgs.yaml > ./duckgs.yml > ~/.duckgs/duckgs.yaml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"duckgs.yaml", "duckgs.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".duckgs", "duckgs.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// GetConfigFileUsed returns the config file loaded by the last LoadConfig.
func GetConfigFileUsed() string {
	return configFileUsed
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for a fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"cache_dir":  DefaultCacheDir,
		"state_path": DefaultStateFile,
		"format":     DefaultFormat,
		"silent":     false,
		"verbose":    false,
		"no_cache":   false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (DUCKGS_ prefix)
	// Transform: DUCKGS_CACHE_DIR -> cache_dir
	if err := k.Load(env.Provider("DUCKGS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DUCKGS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			return flagToKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ${ENV_VAR} references in secret fields
	cfg.GCSKeyID = expandEnvVars(cfg.GCSKeyID)
	cfg.GCSSecret = expandEnvVars(cfg.GCSSecret)

	// Expand ~ in paths
	cfg.CacheDir = expandHome(cfg.CacheDir)
	cfg.StatePath = expandHome(cfg.StatePath)
	if cfg.DatabasePath != "" && cfg.DatabasePath != ":memory:" {
		cfg.DatabasePath = expandHome(cfg.DatabasePath)
	}

	return &cfg, nil
}

// flagToKey maps a flag name to its config key (dashes become underscores).
func flagToKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references with their environment values.
// Unset variables are left as-is so misconfigurations stay visible.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
