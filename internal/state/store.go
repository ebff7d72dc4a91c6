// Package state persists query execution history in a local SQLite
// database so `duckgs history` can show what ran, when, and whether the
// cache served it.
package state

import "time"

// QueryRecord is one executed query.
type QueryRecord struct {
	ID         string
	SQL        string
	CacheKey   string
	FromCache  bool
	Rows       int
	DurationMS int64
	StartedAt  time.Time
	Error      string
}

// Store is the query-history store interface.
type Store interface {
	// RecordQuery appends a record, assigning its ID.
	RecordQuery(rec *QueryRecord) error

	// RecentQueries returns up to limit records, newest first.
	RecentQueries(limit int) ([]*QueryRecord, error)

	// Close closes the store.
	Close() error
}
