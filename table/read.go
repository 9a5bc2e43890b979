package table

import (
	"context"
	"fmt"
	"maps"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
)

func (t *Table) findSelect(values []any) (*db.Select, error) {
	pk := t.PrimaryKey()
	if len(pk) == 0 {
		return nil, fmt.Errorf("%w: %s has no primary key", tablegate.ErrInsufficientPrimaryKey, t.name)
	}
	if len(values) < len(pk) {
		return nil, fmt.Errorf("%w: %s needs %d values, got %d",
			tablegate.ErrInsufficientPrimaryKey, t.name, len(pk), len(values))
	}
	sel := t.adapter.Select().From(t.name)
	for i, col := range pk {
		sel.Where(sel.QuoteWithAlias("", col)+" = ?", values[i])
	}
	return sel, nil
}

// Find returns the row whose primary key columns, in key order, equal
// values. It returns nil when no row matches.
func (t *Table) Find(ctx context.Context, values ...any) (*Row, error) {
	data, err := t.FindRowRefreshData(ctx, values...)
	if err != nil || data == nil {
		return nil, err
	}
	return &Row{table: t, data: data, loaded: true}, nil
}

// FindRowRefreshData returns the values of the row found like Find,
// including its many-to-many and EAV values, or nil.
func (t *Table) FindRowRefreshData(ctx context.Context, values ...any) (map[string]any, error) {
	sel, err := t.findSelect(values)
	if err != nil {
		return nil, err
	}
	data, err := sel.Row(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := t.loadRelated(ctx, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (t *Table) loadRelated(ctx context.Context, data map[string]any) error {
	for _, name := range t.manyToManyKeys {
		r := t.manyToMany[name]
		values, err := r.Load(ctx, data[r.SourceColumn])
		if err != nil {
			return err
		}
		data[name] = values
	}
	if t.eav == nil || len(t.eav.attributes) == 0 {
		return nil
	}
	pk := make([]any, len(t.eav.PrimaryKey))
	for i, col := range t.eav.PrimaryKey {
		pk[i] = data[col]
	}
	values, err := t.eav.Load(ctx, pk)
	if err != nil {
		return err
	}
	for _, attr := range t.eav.attributes {
		data[attr.Name] = values[attr.Name]
	}
	return nil
}

// CreateRow returns a new unsaved row holding a copy of data.
func (t *Table) CreateRow(data map[string]any) *Row {
	row := &Row{table: t, data: make(map[string]any, len(data))}
	maps.Copy(row.data, data)
	return row
}

// FetchRow runs query and returns its first row as a Row of the table, or
// nil when the query returns nothing.
func (t *Table) FetchRow(ctx context.Context, query string, args ...any) (*Row, error) {
	data, err := t.adapter.FetchRow(ctx, query, args...)
	if err != nil || data == nil {
		return nil, err
	}
	return &Row{table: t, data: data, loaded: true}, nil
}

// AdminListingSelect returns the select behind FetchAdminListing: every
// row ordered by primary key.
func (t *Table) AdminListingSelect() *db.Select {
	return t.adapter.Select().From(t.name).Order(t.PrimaryKey()...)
}

// FetchAdminListing returns every row ordered by primary key.
func (t *Table) FetchAdminListing(ctx context.Context) ([]map[string]any, error) {
	return t.AdminListingSelect().All(ctx)
}
