package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"go-query-cache/internal/model"
	"go-query-cache/pkg/utils"
)

// Agg names an aggregation function.
type Agg string

const (
	AggSum   Agg = "sum"
	AggCount Agg = "count"
	AggMean  Agg = "mean"
	AggMax   Agg = "max"
	AggMin   Agg = "min"
)

// NullLabel names the pivot column built from null column values.
const NullLabel = "null"

// ParseAgg parses an aggregation name. Empty means sum.
func ParseAgg(s string) (Agg, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sum":
		return AggSum, nil
	case "count":
		return AggCount, nil
	case "mean", "avg", "average":
		return AggMean, nil
	case "max":
		return AggMax, nil
	case "min":
		return AggMin, nil
	default:
		return "", fmt.Errorf("unknown aggregation: %s", s)
	}
}

// PivotSpec reshapes a long table into a wide one: one row per distinct
// Index value and one column per distinct Columns value, holding the
// aggregated Values.
type PivotSpec struct {
	Index   string `json:"index"`
	Columns string `json:"columns"`
	Values  string `json:"values"`
	Agg     Agg    `json:"agg,omitempty"`
}

// aggregator accumulates the non-null values of one pivot cell.
type aggregator struct {
	count      int
	sum        float64
	intSum     int64
	max, min   any
	maxF, minF float64
}

func (a *aggregator) add(v any) {
	f := utils.Numeric(v)
	if a.count == 0 || f > a.maxF {
		a.max, a.maxF = v, f
	}
	if a.count == 0 || f < a.minF {
		a.min, a.minF = v, f
	}
	a.count++
	a.sum += f
	if i, ok := v.(int64); ok {
		a.intSum += i
	}
}

// Pivot aggregates res according to spec. Rows with a null index are
// dropped, null values are ignored and empty cells are filled with 0.
// Index values and pivot columns are sorted ascending; a null column value
// becomes a column named NullLabel, sorted first. A label already taken by
// the index or an earlier column gets a numeric suffix.
func Pivot(res *model.Result, spec PivotSpec) (*model.Result, error) {
	agg, err := ParseAgg(string(spec.Agg))
	if err != nil {
		return nil, err
	}
	if err := requireColumns(res, spec.Index, spec.Columns, spec.Values); err != nil {
		return nil, err
	}
	idx, col, val := res.Index(spec.Index), res.Index(spec.Columns), res.Index(spec.Values)
	valueType := res.Columns[val].Type
	if agg != AggCount && valueType != model.TypeInteger && valueType != model.TypeFloat {
		return nil, fmt.Errorf("cannot %s non-numeric column %s (%s)", agg, spec.Values, valueType)
	}

	var (
		indexValues  []any
		columnValues []any
		seenIndex    = map[string]bool{}
		seenColumn   = map[string]bool{}
		cells        = map[[2]string]*aggregator{}
	)
	for _, row := range res.Rows {
		iv, cv, v := row[idx], row[col], row[val]
		if iv == nil {
			continue
		}
		ik, ck := valueKey(iv), valueKey(cv)
		if !seenIndex[ik] {
			seenIndex[ik] = true
			indexValues = append(indexValues, iv)
		}
		if !seenColumn[ck] {
			seenColumn[ck] = true
			columnValues = append(columnValues, cv)
		}
		if v == nil {
			continue
		}
		cell := cells[[2]string{ik, ck}]
		if cell == nil {
			cell = &aggregator{}
			cells[[2]string{ik, ck}] = cell
		}
		cell.add(v)
	}
	sort.SliceStable(indexValues, func(i, j int) bool { return compareValues(indexValues[i], indexValues[j]) < 0 })
	sort.SliceStable(columnValues, func(i, j int) bool { return compareValues(columnValues[i], columnValues[j]) < 0 })

	outType := cellType(agg, valueType)
	columns := []model.Column{res.Columns[idx]}
	used := map[string]bool{res.Columns[idx].Name: true}
	for _, cv := range columnValues {
		columns = append(columns, model.Column{Name: uniqueLabel(columnLabel(cv), used), Type: outType})
	}

	out := model.NewResult(columns...)
	for _, iv := range indexValues {
		row := make([]any, 0, len(columns))
		row = append(row, iv)
		for _, cv := range columnValues {
			row = append(row, cellValue(agg, outType, cells[[2]string{valueKey(iv), valueKey(cv)}]))
		}
		out.Append(row...)
	}
	return out, nil
}

func cellType(agg Agg, valueType model.ColumnType) model.ColumnType {
	switch agg {
	case AggCount:
		return model.TypeInteger
	case AggMean:
		return model.TypeFloat
	default:
		return valueType
	}
}

func cellValue(agg Agg, t model.ColumnType, a *aggregator) any {
	if a == nil || a.count == 0 {
		if t == model.TypeInteger {
			return int64(0)
		}
		return 0.0
	}
	switch agg {
	case AggCount:
		return int64(a.count)
	case AggMean:
		return a.sum / float64(a.count)
	case AggMax:
		return a.max
	case AggMin:
		return a.min
	default:
		if t == model.TypeInteger {
			return a.intSum
		}
		return a.sum
	}
}

func columnLabel(v any) string {
	if v == nil {
		return NullLabel
	}
	return model.FormatValue(v)
}

// uniqueLabel suffixes label with _2, _3, ... until no other column uses it.
func uniqueLabel(label string, used map[string]bool) string {
	name := label
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_%d", label, n)
	}
	used[name] = true
	return name
}

// valueKey identifies a value for grouping; nil never collides with "".
func valueKey(v any) string {
	if v == nil {
		return "\x00null"
	}
	return fmt.Sprintf("%T:%s", v, model.FormatValue(v))
}
