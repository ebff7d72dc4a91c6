package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxgreco/duckgs/internal/cache"
	"github.com/maxgreco/duckgs/internal/placeholder"
	"github.com/maxgreco/duckgs/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEngine counts Query invocations so tests can assert that cache hits
// never reach the engine.
type mockEngine struct {
	calls   int
	lastSQL string
	res     *result.Result
	err     error
}

func (m *mockEngine) Query(_ context.Context, sql string) (*result.Result, error) {
	m.calls++
	m.lastSQL = sql
	if m.err != nil {
		return nil, m.err
	}
	return m.res.Clone(), nil
}

func (m *mockEngine) Close() error { return nil }

func engineResult() *result.Result {
	return &result.Result{
		Columns: []result.Column{
			{Name: "id", Type: "BIGINT"},
			{Name: "name", Type: "VARCHAR"},
		},
		Rows: [][]any{
			{int64(42), "alice"},
		},
	}
}

func newTestRunner(t *testing.T, eng *mockEngine) (*Runner, *cache.Store) {
	t.Helper()
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	return New(eng, store, cache.Keyer{}, nil), store
}

func TestRun_MissThenHit(t *testing.T) {
	eng := &mockEngine{res: engineResult()}
	run, _ := newTestRunner(t, eng)

	text := "SELECT * FROM read_parquet('gs://x/y.parquet') WHERE id = {id}"
	params := map[string]any{"id": 42}

	// First call: miss, engine executes, result cached.
	res, info, err := run.Run(context.Background(), text, params, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls)
	assert.False(t, info.FromCache)
	assert.Equal(t, "SELECT * FROM read_parquet('gs://x/y.parquet') WHERE id = 42", info.SQL)
	assert.Equal(t, "SELECT * FROM read_parquet('gs://x/y.parquet') WHERE id = 42", eng.lastSQL)
	assert.True(t, engineResult().Equal(res))

	// Second identical call: hit, engine untouched.
	res, info, err = run.Run(context.Background(), text, params, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls, "cache hit must not invoke the engine")
	assert.True(t, info.FromCache)
	assert.True(t, engineResult().Equal(res))
}

func TestRun_ResolverErrorIsTerminal(t *testing.T) {
	eng := &mockEngine{res: engineResult()}
	run, store := newTestRunner(t, eng)

	_, info, err := run.Run(context.Background(), "WHERE id = {id}", nil, Options{})
	require.Error(t, err)

	var unbound *placeholder.UnboundError
	assert.True(t, errors.As(err, &unbound))
	assert.Equal(t, 0, eng.calls, "resolver failure must not reach the engine")
	assert.Empty(t, info.SQL)

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "resolver failure must not write to the cache")
}

func TestRun_MalformedErrorIsTerminal(t *testing.T) {
	eng := &mockEngine{res: engineResult()}
	run, _ := newTestRunner(t, eng)

	_, _, err := run.Run(context.Background(), "WHERE id = {id", map[string]any{"id": 1}, Options{})
	require.Error(t, err)

	var malformed *placeholder.MalformedError
	assert.True(t, errors.As(err, &malformed))
	assert.Equal(t, 0, eng.calls)
}

func TestRun_EngineErrorNotCached(t *testing.T) {
	engineErr := errors.New("Catalog Error: table does not exist")
	eng := &mockEngine{err: engineErr}
	run, store := newTestRunner(t, eng)

	_, _, err := run.Run(context.Background(), "SELECT * FROM missing", nil, Options{})
	require.Error(t, err)

	var exec *ExecutionError
	require.True(t, errors.As(err, &exec))
	assert.Equal(t, engineErr.Error(), exec.Error(), "engine message must be preserved verbatim")
	assert.True(t, errors.Is(err, engineErr))

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "engine failure must not write to the cache")

	// The next identical call executes again: errors are never cached.
	_, _, err = run.Run(context.Background(), "SELECT * FROM missing", nil, Options{})
	require.Error(t, err)
	assert.Equal(t, 2, eng.calls)
}

func TestRun_NoCache(t *testing.T) {
	eng := &mockEngine{res: engineResult()}
	run, store := newTestRunner(t, eng)

	for i := 0; i < 2; i++ {
		_, info, err := run.Run(context.Background(), "SELECT 1", nil, Options{NoCache: true})
		require.NoError(t, err)
		assert.False(t, info.FromCache)
	}
	assert.Equal(t, 2, eng.calls, "no-cache must execute every time")

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "no-cache must not write to the cache")
}

func TestRun_CorruptCacheFallsBackToEngine(t *testing.T) {
	eng := &mockEngine{res: engineResult()}
	run, store := newTestRunner(t, eng)

	key := cache.Keyer{}.Key("SELECT 1")
	path := filepath.Join(store.Dir(), key+".json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o600))

	res, info, err := run.Run(context.Background(), "SELECT 1", nil, Options{})
	require.NoError(t, err, "cache IO failure must degrade to direct execution")
	assert.Equal(t, 1, eng.calls)
	assert.False(t, info.FromCache)
	assert.True(t, engineResult().Equal(res))

	// The corrupt entry was overwritten by the successful execution.
	got, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, engineResult().Equal(got))
}

func TestRun_TTLApplied(t *testing.T) {
	eng := &mockEngine{res: engineResult()}
	run, store := newTestRunner(t, eng)

	_, _, err := run.Run(context.Background(), "SELECT 1", nil, Options{TTL: time.Hour})
	require.NoError(t, err)

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *entries[0].ExpiresAt, time.Minute)
}

func TestRun_ContextCancelled(t *testing.T) {
	eng := &mockEngine{err: context.Canceled}
	run, store := newTestRunner(t, eng)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := run.Run(ctx, "SELECT 1", nil, Options{})
	require.Error(t, err)

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "an interrupted query must leave the cache unmodified")
}
