// Package commands implements the duckgs subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/maxgreco/duckgs/internal/cache"
	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/maxgreco/duckgs/internal/engine"
	"github.com/maxgreco/duckgs/internal/result"
	"github.com/maxgreco/duckgs/internal/runner"
	"github.com/maxgreco/duckgs/internal/state"
)

// newLogger builds the CLI logger from the output settings: Debug when
// verbose, Error-only when silent, Info otherwise. Logs go to stderr so
// stdout stays clean for query results.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.Silent {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openCache opens the on-disk result cache from config.
func openCache(cfg *config.Config) (*cache.Store, error) {
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", cfg.CacheDir, err)
	}
	return store, nil
}

// openHistory opens the query-history store, running migrations. History is
// best-effort: callers log and continue when this fails.
func openHistory(cfg *config.Config) (*state.SQLiteStore, error) {
	dir := filepath.Dir(cfg.StatePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// engineConfig maps CLI config onto the engine's connection settings.
func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		Path:        cfg.DatabasePath,
		GCSKeyID:    cfg.GCSKeyID,
		GCSSecret:   cfg.GCSSecret,
		Threads:     cfg.Threads,
		MemoryLimit: cfg.MemoryLimit,
	}
}

// lazyEngine defers the DuckDB connection until the first query so that
// cache hits never pay engine startup (extension install, secret setup).
type lazyEngine struct {
	cfg engine.Config

	mu  sync.Mutex
	eng engine.Engine
}

func newLazyEngine(cfg engine.Config) *lazyEngine {
	return &lazyEngine{cfg: cfg}
}

func (l *lazyEngine) Query(ctx context.Context, sql string) (*result.Result, error) {
	l.mu.Lock()
	if l.eng == nil {
		eng, err := engine.Open(ctx, l.cfg)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.eng = eng
	}
	eng := l.eng
	l.mu.Unlock()

	return eng.Query(ctx, sql)
}

func (l *lazyEngine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.eng != nil {
		return l.eng.Close()
	}
	return nil
}

// newRunner wires the cache, keyer, and lazy engine into a runner.
func newRunner(cfg *config.Config, store *cache.Store, logger *slog.Logger) *runner.Runner {
	keyer := cache.Keyer{Fingerprint: cfg.CacheFingerprint}
	return runner.New(newLazyEngine(engineConfig(cfg)), store, keyer, logger)
}

// recordHistory appends a history record, logging instead of failing.
func recordHistory(logger *slog.Logger, cfg *config.Config, rec *state.QueryRecord) {
	store, err := openHistory(cfg)
	if err != nil {
		logger.Warn("query history unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.RecordQuery(rec); err != nil {
		logger.Warn("failed to record query history", "error", err)
	}
}
