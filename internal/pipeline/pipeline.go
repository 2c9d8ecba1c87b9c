// Package pipeline shapes fetched results for analysis: filtering, pivoting,
// sorting and exporting.
package pipeline

import (
	"go-query-cache/internal/model"
)

// Sort orders rows by one column.
type Sort struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Plan is the post-fetch processing of one result. Stages run in order:
// filters, pivot, sort.
type Plan struct {
	Filters []Filter   `json:"filters,omitempty"`
	Pivot   *PivotSpec `json:"pivot,omitempty"`
	Sort    *Sort      `json:"sort,omitempty"`
}

// Empty reports whether the plan leaves results unchanged.
func (p Plan) Empty() bool {
	return len(p.Filters) == 0 && p.Pivot == nil && p.Sort == nil
}

// Apply runs the plan over res and returns a new result. res is not
// modified.
func Apply(res *model.Result, p Plan) (*model.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := res
	var err error
	if len(p.Filters) > 0 {
		if out, err = Where(out, p.Filters...); err != nil {
			return nil, err
		}
	}
	if p.Pivot != nil {
		if out, err = Pivot(out, *p.Pivot); err != nil {
			return nil, err
		}
	}
	if p.Sort != nil {
		if out, err = SortBy(out, p.Sort.Column, p.Sort.Desc); err != nil {
			return nil, err
		}
	}
	return out, nil
}
