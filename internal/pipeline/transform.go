package pipeline

import (
	"sort"
	"strings"
	"time"

	"go-query-cache/internal/model"
)

// Filter keeps rows whose Column renders as Value. Nulls render as "".
type Filter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// ParseFilter parses "column=value".
func ParseFilter(s string) (Filter, bool) {
	col, val, ok := strings.Cut(s, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return Filter{}, false
	}
	return Filter{Column: col, Value: strings.TrimSpace(val)}, true
}

// Where returns the rows of res matching every filter, in their original
// order. res is not modified.
func Where(res *model.Result, filters ...Filter) (*model.Result, error) {
	cols := make([]string, len(filters))
	for i, f := range filters {
		cols[i] = f.Column
	}
	if err := requireColumns(res, cols...); err != nil {
		return nil, err
	}

	out := model.NewResult(res.Columns...)
rows:
	for _, row := range res.Rows {
		for _, f := range filters {
			if model.FormatValue(row[res.Index(f.Column)]) != f.Value {
				continue rows
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// SortBy returns res ordered by column. The sort is stable and nulls are
// always placed last.
func SortBy(res *model.Result, column string, desc bool) (*model.Result, error) {
	if err := requireColumns(res, column); err != nil {
		return nil, err
	}
	idx := res.Index(column)

	out := model.NewResult(res.Columns...)
	out.Rows = append(out.Rows, res.Rows...)
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i][idx], out.Rows[j][idx]
		if a == nil || b == nil {
			return a != nil
		}
		if desc {
			return compareValues(a, b) > 0
		}
		return compareValues(a, b) < 0
	})
	return out, nil
}

// compareValues orders nil first, then numbers, dates and text by their
// natural order. Values of different kinds compare by their rendering.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(model.FormatValue(a), model.FormatValue(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
