package model

import (
	"fmt"
	"strings"
	"time"
)

// ColumnType is the scalar type of a result column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeDate    ColumnType = "date"
)

// DateLayout is the canonical layout for date values.
const DateLayout = "2006-01-02"

// ParseColumnType parses a type name, accepting a few common aliases.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "str":
		return TypeText, nil
	case "integer", "int", "int64":
		return TypeInteger, nil
	case "float", "float64", "double":
		return TypeFloat, nil
	case "date":
		return TypeDate, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// Column describes one named, typed field of a Result.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Result is an in-memory table. Every row is aligned with Columns and
// rows keep the order in which they were produced.
//
// Values are string (text), int64 (integer), float64 (float),
// time.Time at UTC midnight (date) or nil (null).
type Result struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewResult returns an empty Result with the given columns.
func NewResult(columns ...Column) *Result {
	return &Result{Columns: columns, Rows: [][]any{}}
}

// Append adds a row. It panics if the row width does not match the columns.
func (r *Result) Append(values ...any) {
	if len(values) != len(r.Columns) {
		panic(fmt.Sprintf("model: row has %d values, want %d", len(values), len(r.Columns)))
	}
	r.Rows = append(r.Rows, values)
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// ColumnNames returns the column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (r *Result) Index(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column, row-aligned.
func (r *Result) Column(name string) ([]any, bool) {
	idx := r.Index(name)
	if idx < 0 {
		return nil, false
	}
	values := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// Value returns the value at row i of the named column.
func (r *Result) Value(i int, name string) (any, bool) {
	idx := r.Index(name)
	if idx < 0 || i < 0 || i >= len(r.Rows) {
		return nil, false
	}
	return r.Rows[i][idx], true
}

// Records returns the rows as column-name keyed maps.
func (r *Result) Records() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			rec[c.Name] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatValue renders a value for display. Nulls render as "".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(DateLayout)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
