package commands

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/maxgreco/duckgs/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderSample() *result.Result {
	return &result.Result{
		Columns: []result.Column{
			{Name: "id", Type: "BIGINT"},
			{Name: "name", Type: "VARCHAR"},
			{Name: "score", Type: "DOUBLE"},
		},
		Rows: [][]any{
			{int64(1), "alice", 3.5},
			{int64(2), "with,comma", nil},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, renderResult(&buf, renderSample(), "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,score", lines[0])
	assert.Equal(t, "1,alice,3.5", lines[1])
	assert.Equal(t, `2,"with,comma",NULL`, lines[2])
}

func TestRenderMarkdown(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, renderResult(&buf, renderSample(), "md"))

	out := buf.String()
	assert.Contains(t, out, "| id | name | score |")
	assert.Contains(t, out, "| --- | --- | --- |")
	assert.Contains(t, out, "| 1 | alice | 3.5 |")
}

func TestRenderJSON(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, renderResult(&buf, renderSample(), "json"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0]["name"])
	assert.Equal(t, float64(1), rows[0]["id"])
	assert.Nil(t, rows[1]["score"])
}

func TestRenderTable(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, renderResult(&buf, renderSample(), "table"))

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderTable_Empty(t *testing.T) {
	var buf strings.Builder
	empty := &result.Result{Columns: renderSample().Columns}
	require.NoError(t, renderResult(&buf, empty, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf strings.Builder
	err := renderResult(&buf, renderSample(), "xml")
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(7), "7"},
		{3.5, "3.5"},
		{true, "true"},
		{"x", "x"},
		{ts, "2024-03-01 12:30:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in))
	}
}
