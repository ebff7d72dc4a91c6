// Package engine wraps the embedded analytical database that actually
// executes SQL. The runner only depends on the Engine interface; the
// DuckDB implementation lives in duckdb.go.
package engine

import (
	"context"

	"github.com/maxgreco/duckgs/internal/result"
)

// Engine executes substituted SQL and returns typed tabular results.
type Engine interface {
	// Query executes a SQL statement and returns its result. The context
	// cancels the in-flight statement on process interrupt.
	Query(ctx context.Context, sql string) (*result.Result, error)

	// Close releases the underlying database.
	Close() error
}

// Config holds the engine connection and storage-access settings.
type Config struct {
	// Path is the DuckDB database file. Empty means in-memory, which is
	// the normal mode for a query-and-exit CLI.
	Path string

	// GCSKeyID and GCSSecret are HMAC credentials for gs:// URLs. When
	// both are set, a GCS secret is registered at connect time.
	GCSKeyID  string
	GCSSecret string

	// Threads limits DuckDB's worker threads (0 = engine default).
	Threads int

	// MemoryLimit caps engine memory, e.g. "4GB" (empty = engine default).
	MemoryLimit string
}
