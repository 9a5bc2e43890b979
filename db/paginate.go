package db

import (
	"context"

	"github.com/syssam/tablegate/dialect/sql"
)

// TotalCount pairs a select prepared for total row calculation with the
// extraction of that total. The two phases bracket exactly one execution:
// Fetch runs the select and extracts the total, so callers cannot run a
// prepared select and lose the count.
type TotalCount struct {
	adapter *Adapter
	sel     *Select
}

// Paginate prepares a copy of sel so its result carries the un-limited row
// count and returns the extractor bound to it. sel itself is not modified
// and may be paginated again.
func (a *Adapter) Paginate(sel *Select) *TotalCount {
	prepared := sel.Clone()
	a.driver.PrepareSelectForTotalRowCalculation(prepared)
	return &TotalCount{adapter: a, sel: prepared}
}

// Select returns the prepared copy of the select.
func (t *TotalCount) Select() *Select { return t.sel }

// Fetch runs the prepared select and returns its rows together with the
// number of rows the select would return without its LIMIT clause.
func (t *TotalCount) Fetch(ctx context.Context) ([]map[string]any, int64, error) {
	query, args := t.sel.Assemble()
	rs, err := t.adapter.fetch(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	total, err := t.adapter.driver.FetchTotalRowCount(ctx, rs)
	if err != nil {
		return nil, 0, t.adapter.wrap("total row count", query, err)
	}
	return withoutColumn(rs, TotalRowCountColumn).Maps(), total, nil
}

// FetchAllWithTotal runs sel with total row calculation. It is a shorthand
// for a.Paginate(sel).Fetch(ctx).
func (a *Adapter) FetchAllWithTotal(ctx context.Context, sel *Select) ([]map[string]any, int64, error) {
	return a.Paginate(sel).Fetch(ctx)
}

func withoutColumn(rs *sql.ResultSet, name string) *sql.ResultSet {
	idx := -1
	for i, c := range rs.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rs
	}
	out := &sql.ResultSet{
		Columns: append(append([]string{}, rs.Columns[:idx]...), rs.Columns[idx+1:]...),
		Rows:    make([][]any, len(rs.Rows)),
	}
	for i, row := range rs.Rows {
		out.Rows[i] = append(append([]any{}, row[:idx]...), row[idx+1:]...)
	}
	return out
}
