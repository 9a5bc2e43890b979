package table

import (
	"context"
	"fmt"
	"maps"

	"github.com/syssam/tablegate"
)

// Row is an in-memory copy of one record of a Table, including the values
// of its many-to-many and EAV fields.
type Row struct {
	table  *Table
	data   map[string]any
	loaded bool
}

// Table returns the owning table.
func (r *Row) Table() *Table { return r.table }

// Get returns the value stored under name, or nil.
func (r *Row) Get(name string) any { return r.data[name] }

// Set stores value under name. Unknown names are rejected.
func (r *Row) Set(name string, value any) error {
	if !r.table.hasRowColumn(name) {
		return tablegate.NewNotFoundErrorWithID("field", r.table.name+"."+name)
	}
	r.data[name] = value
	return nil
}

// Has reports whether a value is stored under name.
func (r *Row) Has(name string) bool {
	_, ok := r.data[name]
	return ok
}

// Data returns a copy of the row's values.
func (r *Row) Data() map[string]any { return maps.Clone(r.data) }

// Field returns the table field called name.
func (r *Row) Field(name string) (*Field, error) { return r.table.Field(name) }

// IsNew reports whether the row was created in memory and not yet saved or
// loaded from the database.
func (r *Row) IsNew() bool { return !r.loaded }

// PrimaryKey returns the row's primary key values in key order.
func (r *Row) PrimaryKey() []any {
	pk := r.table.PrimaryKey()
	values := make([]any, len(pk))
	for i, col := range pk {
		values[i] = r.data[col]
	}
	return values
}

// Save inserts a new row or updates a loaded one by its primary key. After
// an insert, a generated identity value is stored in the row.
func (r *Row) Save(ctx context.Context) error {
	if !r.loaded {
		res, err := r.table.Insert(ctx, r.data)
		if err != nil {
			return err
		}
		if col, ok := r.table.identityColumn(); ok && isEmpty(r.data[col]) && res.LastInsertID != 0 {
			r.data[col] = res.LastInsertID
		}
		r.loaded = true
		return nil
	}
	where, err := r.table.primaryKeyWhere(r.PrimaryKey())
	if err != nil {
		return err
	}
	_, err = r.table.Update(ctx, r.data, where...)
	return err
}

// Refresh reloads the row from the database by its primary key.
func (r *Row) Refresh(ctx context.Context) error {
	data, err := r.table.FindRowRefreshData(ctx, r.PrimaryKey()...)
	if err != nil {
		return err
	}
	if data == nil {
		return tablegate.NewNotFoundErrorWithID("row", fmt.Sprint(r.PrimaryKey()))
	}
	r.data = data
	r.loaded = true
	return nil
}

// Delete deletes the row by its primary key.
func (r *Row) Delete(ctx context.Context) error {
	where, err := r.table.primaryKeyWhere(r.PrimaryKey())
	if err != nil {
		return err
	}
	_, err = r.table.Delete(ctx, where...)
	return err
}
