// Package result defines the tabular result model shared by the engine,
// cache, and CLI renderers.
package result

import "time"

// Column describes a single result column.
type Column struct {
	// Name is the column name as reported by the engine
	Name string

	// Type is the engine's type name for the column (e.g. "BIGINT", "VARCHAR")
	Type string
}

// Result holds a typed tabular query result: an ordered column schema and
// an ordered sequence of rows. Cell values are one of nil, bool, int64,
// float64, string, or time.Time.
type Result struct {
	Columns []Column
	Rows    [][]any
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// ColumnNames returns the column names in schema order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep copy of the result. Callers that hand results out of
// a shared store use this to keep the stored entry immutable.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Columns: make([]Column, len(r.Columns)),
		Rows:    make([][]any, len(r.Rows)),
	}
	copy(out.Columns, r.Columns)
	for i, row := range r.Rows {
		out.Rows[i] = make([]any, len(row))
		copy(out.Rows[i], row)
	}
	return out
}

// Equal reports whether two results have identical schema and rows.
func (r *Result) Equal(other *Result) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.Columns) != len(other.Columns) || len(r.Rows) != len(other.Rows) {
		return false
	}
	for i := range r.Columns {
		if r.Columns[i] != other.Columns[i] {
			return false
		}
	}
	for i := range r.Rows {
		if len(r.Rows[i]) != len(other.Rows[i]) {
			return false
		}
		for j := range r.Rows[i] {
			if !valueEqual(r.Rows[i][j], other.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}
