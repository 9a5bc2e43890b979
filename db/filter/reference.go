package filter

import (
	"github.com/syssam/tablegate/db"
)

// Reference operators.
const (
	OpIs    = "is"
	OpIsNot = "is-not"
)

var (
	referenceOps     = []string{OpIs, OpIsNot}
	referenceNoValue = []string{OpEmpty, OpNotEmpty}
)

// Reference filters a foreign key column by the referenced row's key.
type Reference struct {
	TableName  string
	ColumnName string
}

// NewReference returns a Reference filter on table.column.
func NewReference(table, column string) *Reference {
	return &Reference{TableName: table, ColumnName: column}
}

// Apply implements Filter. An empty value for is or is-not leaves the
// select unchanged. is-not keeps rows where the column is NULL.
func (f *Reference) Apply(sel *db.Select, set string, vars map[string]string) (*db.Select, error) {
	in, err := parse("reference", vars, referenceOps, referenceNoValue)
	if err != nil {
		return nil, err
	}
	column := sel.QuoteWithAlias(f.TableName, f.ColumnName)
	switch in.op {
	case OpEmpty:
		return sel.WhereConditionSet(set, column+" IS NULL"), nil
	case OpNotEmpty:
		return sel.WhereConditionSet(set, column+" IS NOT NULL"), nil
	}
	if in.value == "" {
		return sel, nil
	}
	if in.op == OpIs {
		return sel.WhereConditionSet(set, column+" = ?", in.value), nil
	}
	return sel.WhereConditionSet(set, "("+column+" <> ? OR "+column+" IS NULL)", in.value), nil
}

var _ Filter = (*Reference)(nil)
