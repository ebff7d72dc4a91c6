package engine

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"github.com/maxgreco/duckgs/internal/result"
)

// DuckDB is the embedded DuckDB engine with the httpfs extension loaded so
// queries can read Parquet files straight from object storage.
type DuckDB struct {
	db     *sql.DB
	config Config
}

// Open connects to DuckDB and prepares it for object-storage access.
// Use an empty path for an in-memory database.
func Open(ctx context.Context, cfg Config) (*DuckDB, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	e := &DuckDB{db: db, config: cfg}
	if err := e.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// bootstrap loads httpfs and registers storage credentials.
func (e *DuckDB) bootstrap(ctx context.Context) error {
	stmts := []string{
		"INSTALL httpfs",
		"LOAD httpfs",
	}

	if e.config.Threads > 0 {
		stmts = append(stmts, fmt.Sprintf("SET threads = %d", e.config.Threads))
	}
	if e.config.MemoryLimit != "" {
		stmts = append(stmts, fmt.Sprintf("SET memory_limit = '%s'", escapeSingle(e.config.MemoryLimit)))
	}
	if e.config.GCSKeyID != "" && e.config.GCSSecret != "" {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE OR REPLACE SECRET gcs_hmac (TYPE GCS, KEY_ID '%s', SECRET '%s')",
			escapeSingle(e.config.GCSKeyID), escapeSingle(e.config.GCSSecret),
		))
	}

	for _, stmt := range stmts {
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("engine setup failed (%s): %w", firstWord(stmt), err)
		}
	}
	return nil
}

// Close closes the DuckDB connection.
func (e *DuckDB) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Query executes a SQL statement and scans all rows into a Result.
func (e *DuckDB) Query(ctx context.Context, sqlStr string) (*result.Result, error) {
	if e.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := e.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

// scanRows reads a sql.Rows cursor into the typed result model.
func scanRows(rows *sql.Rows) (*result.Result, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	res := &result.Result{Columns: make([]result.Column, len(types))}
	for i, ct := range types {
		res.Columns[i] = result.Column{
			Name: ct.Name(),
			Type: ct.DatabaseTypeName(),
		}
	}

	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// normalizeValue maps driver values onto the result model's cell types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int64, float64, string, time.Time:
		return val
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		// UBIGINT values past the int64 range render as text, like the
		// other types the result model cannot hold.
		if val > math.MaxInt64 {
			return strconv.FormatUint(val, 10)
		}
		return int64(val)
	case float32:
		return float64(val)
	default:
		// Decimals, hugeints and other exotic DuckDB types render as text.
		return fmt.Sprintf("%v", val)
	}
}

func escapeSingle(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

var _ Engine = (*DuckDB)(nil)
