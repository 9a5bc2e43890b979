package table

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/metadata"
)

// ManyToManyOptions override the columns of a relationship that are
// otherwise detected from foreign keys.
type ManyToManyOptions struct {
	// SourceColumn is the anchor column of the source table. Defaults to the
	// column the cross reference table points at.
	SourceColumn string
	// XrefAnchorColumn is the cross reference column pointing at the source
	// table.
	XrefAnchorColumn string
	// XrefReferenceColumn is the cross reference column holding the linked
	// values.
	XrefReferenceColumn string
	// ReferenceTable and ReferenceColumn are the target of
	// XrefReferenceColumn.
	ReferenceTable  string
	ReferenceColumn string
}

// ManyToMany links rows of a source table to values of a reference table
// through a cross reference table.
type ManyToMany struct {
	Name                string
	SourceTable         string
	SourceColumn        string
	XrefTable           string
	XrefAnchorColumn    string
	XrefReferenceColumn string
	ReferenceTable      string
	ReferenceColumn     string

	adapter *db.Adapter
}

func newManyToMany(source *metadata.Table, xref *metadata.Table, name string, opts ManyToManyOptions, a *db.Adapter) (*ManyToMany, error) {
	r := &ManyToMany{
		Name:                name,
		SourceTable:         source.Name,
		SourceColumn:        opts.SourceColumn,
		XrefTable:           xref.Name,
		XrefAnchorColumn:    opts.XrefAnchorColumn,
		XrefReferenceColumn: opts.XrefReferenceColumn,
		ReferenceTable:      opts.ReferenceTable,
		ReferenceColumn:     opts.ReferenceColumn,
		adapter:             a,
	}
	cols := make([]string, 0, len(xref.References))
	for col := range xref.References {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	if r.XrefAnchorColumn == "" {
		for _, col := range cols {
			if xref.References[col].Table == source.Name {
				r.XrefAnchorColumn = col
				break
			}
		}
	}
	if ref, ok := xref.References[r.XrefAnchorColumn]; ok && r.SourceColumn == "" {
		r.SourceColumn = ref.Column
	}
	if r.XrefReferenceColumn == "" {
		for _, col := range cols {
			if col != r.XrefAnchorColumn {
				r.XrefReferenceColumn = col
				break
			}
		}
	}
	if ref, ok := xref.References[r.XrefReferenceColumn]; ok {
		if r.ReferenceTable == "" {
			r.ReferenceTable = ref.Table
		}
		if r.ReferenceColumn == "" {
			r.ReferenceColumn = ref.Column
		}
	}
	switch {
	case r.XrefAnchorColumn == "" || !xref.HasColumn(r.XrefAnchorColumn):
		return nil, fmt.Errorf("table: relationship %q: no anchor column in %s", name, xref.Name)
	case r.XrefReferenceColumn == "" || !xref.HasColumn(r.XrefReferenceColumn):
		return nil, fmt.Errorf("table: relationship %q: no reference column in %s", name, xref.Name)
	case r.SourceColumn == "" || !source.HasColumn(r.SourceColumn):
		return nil, fmt.Errorf("table: relationship %q: no source column in %s", name, source.Name)
	}
	return r, nil
}

func (r *ManyToMany) anchorTerm(anchor any) db.Where {
	return db.Term(r.adapter.QuoteIdentifier(r.XrefAnchorColumn)+" = ?", anchor)
}

// Load returns the values linked to anchor, ordered by value.
func (r *ManyToMany) Load(ctx context.Context, anchor any) ([]any, error) {
	sel := r.adapter.Select().
		From(r.XrefTable, r.XrefReferenceColumn).
		Where(r.adapter.QuoteIdentifier(r.XrefAnchorColumn)+" = ?", anchor).
		Order(r.XrefReferenceColumn)
	values, err := sel.Col(ctx)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []any{}
	}
	return values, nil
}

// Save makes the values linked to anchor exactly values. Links already
// present are kept, missing ones inserted and others deleted, so saving
// the same values twice changes nothing.
func (r *ManyToMany) Save(ctx context.Context, values any, anchor any) error {
	if isEmpty(anchor) {
		return fmt.Errorf("table: relationship %q: anchor value is required", r.Name)
	}
	current, err := r.Load(ctx, anchor)
	if err != nil {
		return err
	}
	want := uniqueValues(toSlice(values))
	wantKeys := make(map[string]bool, len(want))
	for _, v := range want {
		wantKeys[valueKey(v)] = true
	}
	have := make(map[string]bool, len(current))
	var removed []any
	for _, v := range current {
		k := valueKey(v)
		have[k] = true
		if !wantKeys[k] {
			removed = append(removed, v)
		}
	}
	if len(removed) > 0 {
		_, err := r.adapter.Delete(ctx, r.XrefTable,
			r.anchorTerm(anchor),
			db.Term(r.adapter.QuoteIdentifier(r.XrefReferenceColumn)+" IN (?)", removed),
		)
		if err != nil {
			return err
		}
	}
	for _, v := range want {
		if have[valueKey(v)] {
			continue
		}
		_, err := r.adapter.Insert(ctx, r.XrefTable, map[string]any{
			r.XrefAnchorColumn:    anchor,
			r.XrefReferenceColumn: v,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear deletes every link of anchor.
func (r *ManyToMany) Clear(ctx context.Context, anchor any) error {
	_, err := r.adapter.Delete(ctx, r.XrefTable, r.anchorTerm(anchor))
	return err
}

func valueKey(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func uniqueValues(values []any) []any {
	seen := make(map[string]bool, len(values))
	out := make([]any, 0, len(values))
	for _, v := range values {
		if isEmpty(v) {
			continue
		}
		k := valueKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// toSlice turns a slice of any element type into []any. A scalar becomes a
// one element slice and nil an empty one.
func toSlice(v any) []any {
	switch v := v.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []byte, string:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
