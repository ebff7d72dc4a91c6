package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlagSet registers the persistent flags the root command declares, so
// precedence tests exercise the real flag-to-config mapping.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("bucket", "", "")
	fs.String("cache-dir", "", "")
	fs.Duration("cache-ttl", 0, "")
	fs.String("format", "", "")
	fs.Bool("silent", false, "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	// Run from an empty directory so no local duckgs.yaml is picked up.
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.False(t, cfg.Silent)
	assert.False(t, cfg.NoCache)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.NotContains(t, cfg.CacheDir, "~", "home directory should be expanded")
	assert.NotEmpty(t, cfg.StatePath)
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "duckgs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
bucket: gs://my-bucket/data/**/*.parquet
cache_dir: /tmp/duckgs-test-cache
cache_ttl: 30m
format: json
threads: 4
`), 0o600))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "gs://my-bucket/data/**/*.parquet", cfg.Bucket)
	assert.Equal(t, "/tmp/duckgs-test-cache", cfg.CacheDir)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 4, cfg.Threads)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "duckgs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("bucket: gs://from-file\n"), 0o600))

	t.Setenv("DUCKGS_BUCKET", "gs://from-env")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "gs://from-env", cfg.Bucket)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	t.Setenv("DUCKGS_BUCKET", "gs://from-env")

	fs := newFlagSet()
	require.NoError(t, fs.Set("bucket", "gs://from-flag"))
	require.NoError(t, fs.Set("cache-ttl", "1h"))

	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, "gs://from-flag", cfg.Bucket)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestLoadConfig_UnchangedFlagsIgnored(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	t.Setenv("DUCKGS_FORMAT", "csv")

	// The flag exists but was never set; env must win.
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.OutputFormat)
}

func TestLoadConfig_SecretExpansion(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "duckgs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
gcs_key_id: ${TEST_GCS_KEY}
gcs_secret: ${TEST_GCS_UNSET}
`), 0o600))

	t.Setenv("TEST_GCS_KEY", "AKIA123")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "AKIA123", cfg.GCSKeyID)
	assert.Equal(t, "${TEST_GCS_UNSET}", cfg.GCSSecret, "unset variables stay as-is")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~/x/y", filepath.Join(home, "x", "y")},
		{"~", home},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandHome(tt.in), "input %q", tt.in)
	}
}

func TestFlagToKey(t *testing.T) {
	assert.Equal(t, "cache_dir", flagToKey("cache-dir"))
	assert.Equal(t, "bucket", flagToKey("bucket"))
}
