package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maxgreco/duckgs/internal/result"
)

// entry is the on-disk representation of a cached result.
type entry struct {
	Key       string          `json:"key"`
	Columns   []result.Column `json:"columns"`
	Rows      [][]any         `json:"rows"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// expired reports whether the entry is past its expiry at the given time.
func (e *entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// encodeEntry serializes an entry, rendering time cells as RFC 3339 strings
// so they survive JSON.
func encodeEntry(e *entry) ([]byte, error) {
	enc := entry{
		Key:       e.Key,
		Columns:   e.Columns,
		Rows:      make([][]any, len(e.Rows)),
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
	}
	for i, row := range e.Rows {
		enc.Rows[i] = make([]any, len(row))
		for j, v := range row {
			if t, ok := v.(time.Time); ok {
				enc.Rows[i][j] = t.UTC().Format(time.RFC3339Nano)
				continue
			}
			enc.Rows[i][j] = v
		}
	}
	return json.MarshalIndent(&enc, "", "  ")
}

// decodeEntry deserializes an entry, coercing cell values back to their
// typed Go representation using the stored column schema. Numbers are
// decoded via json.Number so integer columns round-trip as int64 rather
// than float64.
func decodeEntry(data []byte) (*entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var e entry
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}

	for _, row := range e.Rows {
		if len(row) != len(e.Columns) {
			return nil, fmt.Errorf("row has %d values, schema has %d columns", len(row), len(e.Columns))
		}
		for j, v := range row {
			coerced, err := coerceValue(e.Columns[j].Type, v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", e.Columns[j].Name, err)
			}
			row[j] = coerced
		}
	}
	return &e, nil
}

// coerceValue maps a decoded JSON value back to the typed cell value the
// engine produced, driven by the column's declared type.
func coerceValue(colType string, v any) (any, error) {
	switch val := v.(type) {
	case nil, bool:
		return val, nil
	case json.Number:
		if isIntegerType(colType) {
			return val.Int64()
		}
		return val.Float64()
	case string:
		if isTemporalType(colType) {
			t, err := time.Parse(time.RFC3339Nano, val)
			if err != nil {
				return nil, fmt.Errorf("bad temporal value %q: %w", val, err)
			}
			return t, nil
		}
		return val, nil
	default:
		return nil, fmt.Errorf("unexpected cell value of type %T", v)
	}
}

func isIntegerType(t string) bool {
	return strings.Contains(strings.ToUpper(t), "INT")
}

func isTemporalType(t string) bool {
	u := strings.ToUpper(t)
	// The TIME prefix covers TIME, TIME WITH TIME ZONE, and every
	// TIMESTAMP variant; the driver scans all of them as time.Time.
	return strings.HasPrefix(u, "TIME") || u == "DATE" || strings.HasPrefix(u, "DATETIME")
}
