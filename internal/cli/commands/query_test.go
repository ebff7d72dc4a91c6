package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maxgreco/duckgs/internal/cache"
	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/maxgreco/duckgs/internal/placeholder"
	"github.com/maxgreco/duckgs/internal/result"
	"github.com/maxgreco/duckgs/internal/runner"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.14", 3.14},
		{"true", true},
		{"FALSE", false},
		{"null", nil},
		{"hello", "hello"},
		{"2024-01-01", "2024-01-01"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferValue(tt.in), "input %q", tt.in)
	}
}

func TestSplitParam(t *testing.T) {
	name, val, err := splitParam("id=42")
	require.NoError(t, err)
	assert.Equal(t, "id", name)
	assert.Equal(t, "42", val)

	name, val, err = splitParam("expr=a=b")
	require.NoError(t, err)
	assert.Equal(t, "expr", name)
	assert.Equal(t, "a=b", val)

	name, val, err = splitParam("empty=")
	require.NoError(t, err)
	assert.Equal(t, "empty", name)
	assert.Equal(t, "", val)

	_, _, err = splitParam("novalue")
	assert.Error(t, err)

	_, _, err = splitParam("=orphan")
	assert.Error(t, err)
}

func TestEnsureBucketURL(t *testing.T) {
	assert.Equal(t, "gs://my-bucket/data/*.parquet", ensureBucketURL("my-bucket/data/*.parquet"))
	assert.Equal(t, "gs://my-bucket", ensureBucketURL("my-bucket"))
	assert.Equal(t, "gs://already/prefixed", ensureBucketURL("gs://already/prefixed"))
	assert.Equal(t, "s3://other/scheme", ensureBucketURL("s3://other/scheme"))
	assert.Equal(t, "", ensureBucketURL(""))
}

func TestBuildParams(t *testing.T) {
	cfg := &config.Config{Bucket: "my-bucket/*.parquet"}
	opts := &QueryOptions{
		Params:    []string{"id=42", "name=alice"},
		RawParams: []string{"cols=id, name"},
	}

	params, err := buildParams(cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, placeholder.Raw("gs://my-bucket/*.parquet"), params["bucket"])
	assert.Equal(t, int64(42), params["id"])
	assert.Equal(t, "alice", params["name"])
	assert.Equal(t, placeholder.Raw("id, name"), params["cols"])
}

func TestBuildParams_ParamsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: 7\nname: bob\nratio: 0.5\nactive: true\n"), 0o600))

	cfg := &config.Config{}
	opts := &QueryOptions{
		ParamsFile: path,
		Params:     []string{"id=42"}, // flags override the file
	}

	params, err := buildParams(cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, int64(42), params["id"])
	assert.Equal(t, "bob", params["name"])
	assert.Equal(t, 0.5, params["ratio"])
	assert.Equal(t, true, params["active"])
}

func TestBuildParams_InvalidParam(t *testing.T) {
	_, err := buildParams(&config.Config{}, &QueryOptions{Params: []string{"broken"}})
	assert.Error(t, err)
}

func TestNormalizeYAMLValue(t *testing.T) {
	assert.Equal(t, int64(5), normalizeYAMLValue(5))
	assert.Equal(t, int64(5), normalizeYAMLValue(int64(5)))
	assert.Equal(t, 1.5, normalizeYAMLValue(1.5))
	assert.Equal(t, "x", normalizeYAMLValue("x"))
	assert.Equal(t, true, normalizeYAMLValue(true))
	assert.Nil(t, normalizeYAMLValue(nil))
	assert.Equal(t, "[1 2]", normalizeYAMLValue([]int{1, 2}))
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "abcdef012345", shortKey("abcdef0123456789abcdef"))
	assert.Equal(t, "short", shortKey("short"))
}

func TestQuerySource_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1\n"), 0o600))

	text, err := querySource(nil, &QueryOptions{QueryFile: path})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
}

func TestQuerySource_Args(t *testing.T) {
	text, err := querySource([]string{"SELECT", "1"}, &QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
}

func TestQuerySource_MissingFile(t *testing.T) {
	_, err := querySource(nil, &QueryOptions{QueryFile: "/nonexistent/q.sql"})
	assert.Error(t, err)
}

type stubEngine struct {
	res *result.Result
}

func (s *stubEngine) Query(_ context.Context, _ string) (*result.Result, error) {
	return s.res.Clone(), nil
}

func (s *stubEngine) Close() error { return nil }

// Every execution lands in the query history, whether the engine ran or
// the cache served it. The REPL goes through the same path.
func TestExecuteQuery_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		CacheDir:     filepath.Join(dir, "cache"),
		StatePath:    filepath.Join(dir, "state.db"),
		OutputFormat: "csv",
		Silent:       true,
	}

	store, err := cache.Open(cfg.CacheDir)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	eng := &stubEngine{res: &result.Result{
		Columns: []result.Column{{Name: "n", Type: "BIGINT"}},
		Rows:    [][]any{{int64(1)}},
	}}
	run := runner.New(eng, store, cache.Keyer{}, nil)

	var out, errOut strings.Builder
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	logger := newLogger(cfg)

	// Miss then hit; both must be recorded.
	require.NoError(t, executeQuery(cmd, cfg, run, logger, "SELECT 1", nil, &QueryOptions{}))
	require.NoError(t, executeQuery(cmd, cfg, run, logger, "SELECT 1", nil, &QueryOptions{}))

	hist, err := openHistory(cfg)
	require.NoError(t, err)
	defer func() { _ = hist.Close() }()

	records, err := hist.RecentQueries(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	hits := 0
	for _, rec := range records {
		assert.Equal(t, "SELECT 1", rec.SQL)
		assert.Equal(t, 1, rec.Rows)
		if rec.FromCache {
			hits++
		}
	}
	assert.Equal(t, 1, hits, "one engine execution and one cache hit")
}
