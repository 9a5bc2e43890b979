package table

import (
	"context"
	"fmt"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/privacy"
)

// InsertResult reports the outcome of Table.Insert.
type InsertResult struct {
	RowsAffected int64
	// LastInsertID is the value generated for the identity column, or 0
	// when the table has none.
	LastInsertID int64
}

// physicalData returns the entries of data that are physical columns.
func (t *Table) physicalData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if t.meta.HasColumn(k) {
			out[k] = v
		}
	}
	return out
}

// Insert inserts a row. Entries of data naming many-to-many relationships
// or EAV attributes are saved after the row, keyed by the values in data or
// else by the identity value generated by this insert.
func (t *Table) Insert(ctx context.Context, data map[string]any) (InsertResult, error) {
	if err := t.authorize(ctx, privacy.OpInsert, data, nil); err != nil {
		return InsertResult{}, tablegate.NewMutationError(t.name, "insert", err)
	}
	n, err := t.adapter.Insert(ctx, t.name, t.physicalData(data))
	if err != nil {
		return InsertResult{}, tablegate.NewMutationError(t.name, "insert", err)
	}
	res := InsertResult{RowsAffected: n}
	if _, ok := t.identityColumn(); ok {
		id, err := t.adapter.LastInsertID(ctx)
		if err != nil {
			return res, tablegate.NewMutationError(t.name, "insert", err)
		}
		res.LastInsertID = id
	}
	if err := t.saveRelated(ctx, data, res.LastInsertID); err != nil {
		return res, tablegate.NewMutationError(t.name, "insert", err)
	}
	return res, nil
}

// Update updates the rows matching where. The UPDATE statement is skipped
// when data holds no physical column. Many-to-many and EAV entries are
// keyed by the anchor and primary key values in data.
func (t *Table) Update(ctx context.Context, data map[string]any, where ...db.Where) (int64, error) {
	if err := t.authorize(ctx, privacy.OpUpdate, data, where); err != nil {
		return 0, tablegate.NewMutationError(t.name, "update", err)
	}
	var n int64
	if physical := t.physicalData(data); len(physical) > 0 {
		var err error
		n, err = t.adapter.Update(ctx, t.name, physical, where...)
		if err != nil {
			return 0, tablegate.NewMutationError(t.name, "update", err)
		}
	}
	if err := t.saveRelated(ctx, data, 0); err != nil {
		return n, tablegate.NewMutationError(t.name, "update", err)
	}
	return n, nil
}

// Delete deletes the rows matching where.
func (t *Table) Delete(ctx context.Context, where ...db.Where) (int64, error) {
	if err := t.authorize(ctx, privacy.OpDelete, nil, where); err != nil {
		return 0, tablegate.NewMutationError(t.name, "delete", err)
	}
	n, err := t.adapter.Delete(ctx, t.name, where...)
	if err != nil {
		return 0, tablegate.NewMutationError(t.name, "delete", err)
	}
	return n, nil
}

func (t *Table) authorize(ctx context.Context, op privacy.Op, data map[string]any, where []db.Where) error {
	if len(t.policy) == 0 {
		return nil
	}
	err := t.policy.Eval(ctx, &privacy.Mutation{Table: t.name, Op: op, Data: data, Where: where})
	if err != nil {
		t.logger.Debug("write denied", "table", t.name, "op", op.String(), "error", err)
	}
	return err
}

// resolve returns data[col] or, when empty, the generated id.
func resolve(data map[string]any, col string, id int64) any {
	if v := data[col]; !isEmpty(v) {
		return v
	}
	if id != 0 {
		return id
	}
	return nil
}

func (t *Table) saveRelated(ctx context.Context, data map[string]any, id int64) error {
	for _, name := range t.manyToManyKeys {
		values, ok := data[name]
		if !ok {
			continue
		}
		r := t.manyToMany[name]
		anchor := resolve(data, r.SourceColumn, id)
		if anchor == nil {
			return fmt.Errorf("relationship %q: no value for anchor column %q", name, r.SourceColumn)
		}
		if err := r.Save(ctx, values, anchor); err != nil {
			return err
		}
		t.logger.Debug("many-to-many saved", "table", t.name, "relationship", name, "anchor", anchor)
	}
	if t.eav == nil {
		return nil
	}
	var pk []any
	for _, attr := range t.eav.attributes {
		value, ok := data[attr.Name]
		if !ok {
			continue
		}
		if pk == nil {
			for _, col := range t.eav.PrimaryKey {
				pk = append(pk, resolve(data, col, id))
			}
		}
		if err := t.eav.Save(ctx, attr.Name, value, pk); err != nil {
			return err
		}
	}
	return nil
}

// primaryKeyWhere returns the terms matching one row by primary key.
func (t *Table) primaryKeyWhere(values []any) ([]db.Where, error) {
	pk := t.PrimaryKey()
	if len(pk) == 0 {
		return nil, fmt.Errorf("%w: %s has no primary key", tablegate.ErrInsufficientPrimaryKey, t.name)
	}
	if len(values) < len(pk) {
		return nil, fmt.Errorf("%w: %s needs %d values, got %d",
			tablegate.ErrInsufficientPrimaryKey, t.name, len(pk), len(values))
	}
	where := make([]db.Where, len(pk))
	for i, col := range pk {
		where[i] = db.Term(t.adapter.QuoteIdentifier(col)+" = ?", values[i])
	}
	return where, nil
}
