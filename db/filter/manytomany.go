package filter

import (
	"github.com/syssam/tablegate/db"
)

// Many-to-many operators.
const (
	OpHas        = "contains"
	OpHasNot     = "not-contains"
	OpIsEmpty    = "is-empty"
	OpIsNotEmpty = "is-not-empty"
)

var (
	manyToManyOps     = []string{OpHas, OpHasNot}
	manyToManyNoValue = []string{OpIsEmpty, OpIsNotEmpty}
)

// ManyToMany filters rows by the values linked to them through a cross
// reference table. Conditions are correlated subqueries, so the select
// is not joined and returns each row once.
type ManyToMany struct {
	// TableName and AnchorColumn identify the filtered rows.
	TableName    string
	AnchorColumn string
	// XrefTable links XrefAnchorColumn (pointing at AnchorColumn) to
	// XrefReferenceColumn (the linked value).
	XrefTable           string
	XrefAnchorColumn    string
	XrefReferenceColumn string
}

// Apply implements Filter. An empty value for contains or not-contains
// leaves the select unchanged.
func (f *ManyToMany) Apply(sel *db.Select, set string, vars map[string]string) (*db.Select, error) {
	in, err := parse("many-to-many", vars, manyToManyOps, manyToManyNoValue)
	if err != nil {
		return nil, err
	}
	a := sel.Adapter()
	exists := "SELECT 1 FROM " + a.QuoteIdentifier(f.XrefTable) +
		" WHERE " + a.QuoteIdentifier(f.XrefTable+"."+f.XrefAnchorColumn) +
		" = " + sel.QuoteWithAlias(f.TableName, f.AnchorColumn)
	switch in.op {
	case OpIsEmpty:
		return sel.WhereConditionSet(set, "NOT EXISTS ("+exists+")"), nil
	case OpIsNotEmpty:
		return sel.WhereConditionSet(set, "EXISTS ("+exists+")"), nil
	}
	if in.value == "" {
		return sel, nil
	}
	exists += " AND " + a.QuoteIdentifier(f.XrefTable+"."+f.XrefReferenceColumn) + " = ?"
	if in.op == OpHas {
		return sel.WhereConditionSet(set, "EXISTS ("+exists+")", in.value), nil
	}
	return sel.WhereConditionSet(set, "NOT EXISTS ("+exists+")", in.value), nil
}

var _ Filter = (*ManyToMany)(nil)
