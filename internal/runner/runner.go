// Package runner coordinates a single query execution: placeholder
// resolution, cache lookup, engine execution on miss, and the cache write
// for the result.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/maxgreco/duckgs/internal/cache"
	"github.com/maxgreco/duckgs/internal/engine"
	"github.com/maxgreco/duckgs/internal/placeholder"
	"github.com/maxgreco/duckgs/internal/result"
)

// ExecutionError wraps a failure reported by the engine. The engine's
// message is preserved verbatim; the type exists so callers can tell
// engine failures apart from input errors.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// Options control a single Run.
type Options struct {
	// TTL, when positive, gives the cached entry an expiry. Zero means
	// the entry never expires.
	TTL time.Duration

	// NoCache bypasses both the cache lookup and the cache write.
	NoCache bool
}

// RunInfo reports what a Run did.
type RunInfo struct {
	// SQL is the fully substituted query text.
	SQL string

	// Key is the cache key derived from SQL.
	Key string

	// FromCache is true when the result was served without engine
	// execution.
	FromCache bool

	// Elapsed is the engine execution time (zero on a cache hit).
	Elapsed time.Duration
}

// Runner executes queries against an engine with a result cache in front.
type Runner struct {
	engine engine.Engine
	store  *cache.Store
	keyer  cache.Keyer
	logger *slog.Logger
}

// New creates a runner. The store handle is owned by the caller: opened at
// process start, closed at process end. A nil logger discards output.
func New(eng engine.Engine, store *cache.Store, keyer cache.Keyer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{engine: eng, store: store, keyer: keyer, logger: logger}
}

// Run resolves placeholders in text, then returns the cached result for
// the substituted query or executes it via the engine and caches the
// outcome.
//
// Resolution failures are terminal: neither the cache nor the engine is
// contacted. Cache IO failures never fail the query; they degrade to a
// direct execution with a warning. Engine failures propagate as
// *ExecutionError and nothing is cached for that key.
func (r *Runner) Run(ctx context.Context, text string, params map[string]any, opts Options) (*result.Result, RunInfo, error) {
	var info RunInfo

	sql, err := placeholder.Resolve(text, params)
	if err != nil {
		return nil, info, err
	}
	info.SQL = sql
	info.Key = r.keyer.Key(sql)

	if !opts.NoCache {
		res, ok, err := r.store.Get(info.Key)
		if err != nil {
			// Degraded mode: treat as a miss and keep going.
			r.logger.Warn("cache read failed, executing directly", "key", info.Key, "error", err)
		}
		if ok {
			r.logger.Debug("cache hit", "key", info.Key, "rows", res.RowCount())
			info.FromCache = true
			return res, info, nil
		}
	}

	r.logger.Debug("executing query", "key", info.Key)
	start := time.Now()
	res, err := r.engine.Query(ctx, sql)
	info.Elapsed = time.Since(start)
	if err != nil {
		return nil, info, &ExecutionError{SQL: sql, Err: err}
	}

	if !opts.NoCache {
		if err := r.storeResult(info.Key, res, opts.TTL); err != nil {
			r.logger.Warn("cache write failed", "key", info.Key, "error", err)
		}
	}

	r.logger.Debug("query executed", "key", info.Key, "rows", res.RowCount(), "elapsed", info.Elapsed)
	return res, info, nil
}

func (r *Runner) storeResult(key string, res *result.Result, ttl time.Duration) error {
	if ttl > 0 {
		return r.store.PutTTL(key, res, ttl)
	}
	return r.store.Put(key, res)
}
