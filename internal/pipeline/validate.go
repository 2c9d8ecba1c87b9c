package pipeline

import (
	"errors"
	"fmt"

	"go-query-cache/internal/model"
)

// ErrUnknownColumn is returned when a plan names a column the result lacks.
var ErrUnknownColumn = errors.New("unknown column")

// requireColumns checks that every named column exists in res.
func requireColumns(res *model.Result, names ...string) error {
	for _, name := range names {
		if res.Index(name) < 0 {
			return fmt.Errorf("%w: %s (have %v)", ErrUnknownColumn, name, res.ColumnNames())
		}
	}
	return nil
}

// Validate checks that a plan is complete. Column names are checked against
// the result when the plan is applied.
func (p Plan) Validate() error {
	for _, f := range p.Filters {
		if f.Column == "" {
			return errors.New("filter column is required")
		}
	}
	if p.Sort != nil && p.Sort.Column == "" {
		return errors.New("sort column is required")
	}
	if p.Pivot != nil {
		if p.Pivot.Index == "" || p.Pivot.Columns == "" || p.Pivot.Values == "" {
			return errors.New("pivot needs index, columns and values")
		}
		if _, err := ParseAgg(string(p.Pivot.Agg)); err != nil {
			return err
		}
	}
	return nil
}
