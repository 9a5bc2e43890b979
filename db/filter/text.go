package filter

import (
	"github.com/syssam/tablegate/db"
)

// Text operators.
const (
	OpContains    = "contains"
	OpNotContains = "does-not-contain"
	OpStartsWith  = "starts-with"
	OpEndsWith    = "ends-with"
	OpEmpty       = "empty"
	OpNotEmpty    = "not-empty"
)

var (
	textOps     = []string{OpContains, OpNotContains, OpStartsWith, OpEndsWith}
	textNoValue = []string{OpEmpty, OpNotEmpty}
)

// Text filters a text column with LIKE patterns.
type Text struct {
	TableName  string
	ColumnName string
}

// NewText returns a Text filter on table.column.
func NewText(table, column string) *Text {
	return &Text{TableName: table, ColumnName: column}
}

// Apply implements Filter. An empty value for an operator that takes one
// leaves the select unchanged.
func (f *Text) Apply(sel *db.Select, set string, vars map[string]string) (*db.Select, error) {
	in, err := parse("text", vars, textOps, textNoValue)
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
	like := sel.Adapter().CaseInsensitiveLikeOperator()
	switch in.op {
	case OpContains:
		return sel.WhereConditionSet(set, column+" "+like+" ?", "%"+in.value+"%"), nil
	case OpNotContains:
		return sel.WhereConditionSet(set, column+" NOT "+like+" ?", "%"+in.value+"%"), nil
	case OpStartsWith:
		return sel.WhereConditionSet(set, column+" "+like+" ?", in.value+"%"), nil
	default:
		return sel.WhereConditionSet(set, column+" "+like+" ?", "%"+in.value), nil
	}
}

var _ Filter = (*Text)(nil)
