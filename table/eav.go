package table

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
)

// EAV value backends. Each backend stores its values in its own table.
const (
	BackendVarchar  = "varchar"
	BackendText     = "text"
	BackendInt      = "int"
	BackendDecimal  = "decimal"
	BackendDatetime = "datetime"
)

// Backends lists the supported value backends.
var Backends = []string{BackendVarchar, BackendText, BackendInt, BackendDecimal, BackendDatetime}

// AttributePrefix prefixes the field names of EAV attributes.
const AttributePrefix = "eav_"

// EavOptions configure the EAV tables of a Table.
type EavOptions struct {
	// AttributeTable defaults to <table>_attributes. It has the columns
	// attribute_id, backend_type, label, is_required and sort_index.
	AttributeTable string
	// ValueTablePrefix defaults to <table>_values_. Value tables are named
	// prefix + backend and hold the owning table's primary key columns,
	// attribute_id and value.
	ValueTablePrefix string
}

// Attribute is one custom field defined in the attribute table.
type Attribute struct {
	ID        int64
	Name      string
	Backend   string
	Label     string
	Required  bool
	SortIndex int64
}

func (a *Attribute) column(table string) dialect.Column {
	c := dialect.Column{TableName: table, Name: a.Name, DataType: a.Backend, Nullable: !a.Required}
	switch a.Backend {
	case BackendVarchar:
		c.Length = 255
	case BackendDecimal:
		c.Precision, c.Scale = 15, 4
	}
	return c
}

// Eav stores custom attribute values of a table's rows in value tables
// keyed by the row's primary key.
type Eav struct {
	Table            string
	PrimaryKey       []string
	AttributeTable   string
	ValueTablePrefix string

	adapter    *db.Adapter
	attributes []*Attribute
	byName     map[string]*Attribute
}

func loadEav(ctx context.Context, a *db.Adapter, table string, pk []string, opts EavOptions) (*Eav, error) {
	e := &Eav{
		Table:            table,
		PrimaryKey:       pk,
		AttributeTable:   opts.AttributeTable,
		ValueTablePrefix: opts.ValueTablePrefix,
		adapter:          a,
		byName:           make(map[string]*Attribute),
	}
	if e.AttributeTable == "" {
		e.AttributeTable = table + "_attributes"
	}
	if e.ValueTablePrefix == "" {
		e.ValueTablePrefix = table + "_values_"
	}
	if len(pk) == 0 {
		return nil, fmt.Errorf("table: eav on %s: table has no primary key", table)
	}
	rows, err := a.Select().From(e.AttributeTable).Order("attribute_id").All(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		id, err := db.ToInt64(row["attribute_id"])
		if err != nil {
			return nil, fmt.Errorf("table: eav on %s: %w", table, err)
		}
		required, _ := db.ToInt64(row["is_required"])
		sortIndex, _ := db.ToInt64(row["sort_index"])
		attr := &Attribute{
			ID:        id,
			Name:      AttributePrefix + strconv.FormatInt(id, 10),
			Backend:   db.ToString(row["backend_type"]),
			Label:     db.ToString(row["label"]),
			Required:  required != 0,
			SortIndex: sortIndex,
		}
		if !slices.Contains(Backends, attr.Backend) {
			return nil, fmt.Errorf("table: eav on %s: attribute %d has unknown backend %q", table, id, attr.Backend)
		}
		e.attributes = append(e.attributes, attr)
		e.byName[attr.Name] = attr
	}
	sort.SliceStable(e.attributes, func(i, j int) bool {
		return e.attributes[i].SortIndex < e.attributes[j].SortIndex
	})
	return e, nil
}

// ValueTable returns the table holding values of backend.
func (e *Eav) ValueTable(backend string) string { return e.ValueTablePrefix + backend }

// HasAttribute reports whether name is an attribute field name.
func (e *Eav) HasAttribute(name string) bool {
	_, ok := e.byName[name]
	return ok
}

// Attribute returns the attribute with the given field name.
func (e *Eav) Attribute(name string) (*Attribute, bool) {
	a, ok := e.byName[name]
	return a, ok
}

// Attributes returns the attributes ordered by sort index.
func (e *Eav) Attributes() []*Attribute { return e.attributes }

func (e *Eav) keyTerms(pk []any) ([]db.Where, error) {
	if len(pk) < len(e.PrimaryKey) {
		return nil, fmt.Errorf("%w: eav on %s needs %d values, got %d",
			tablegate.ErrInsufficientPrimaryKey, e.Table, len(e.PrimaryKey), len(pk))
	}
	terms := make([]db.Where, len(e.PrimaryKey))
	for i, col := range e.PrimaryKey {
		if isEmpty(pk[i]) {
			return nil, fmt.Errorf("%w: eav on %s: no value for %s", tablegate.ErrInsufficientPrimaryKey, e.Table, col)
		}
		terms[i] = db.Term(e.adapter.QuoteIdentifier(col)+" = ?", pk[i])
	}
	return terms, nil
}

// Save stores value for the attribute called name on the row identified by
// pk. An empty value removes the stored value.
func (e *Eav) Save(ctx context.Context, name string, value any, pk []any) error {
	attr, ok := e.byName[name]
	if !ok {
		return tablegate.NewNotFoundErrorWithID("attribute", name)
	}
	where, err := e.keyTerms(pk)
	if err != nil {
		return err
	}
	table := e.ValueTable(attr.Backend)
	where = append(where, db.Term(e.adapter.QuoteIdentifier("attribute_id")+" = ?", attr.ID))
	if _, err := e.adapter.Delete(ctx, table, where...); err != nil {
		return err
	}
	if isEmpty(value) {
		return nil
	}
	data := map[string]any{"attribute_id": attr.ID, "value": value}
	for i, col := range e.PrimaryKey {
		data[col] = pk[i]
	}
	_, err = e.adapter.Insert(ctx, table, data)
	return err
}

// Load returns the stored attribute values of the row identified by pk,
// keyed by attribute field name. It runs one query per backend in use.
func (e *Eav) Load(ctx context.Context, pk []any) (map[string]any, error) {
	values := make(map[string]any)
	if len(e.attributes) == 0 {
		return values, nil
	}
	if _, err := e.keyTerms(pk); err != nil {
		return nil, err
	}
	for _, backend := range Backends {
		if !slices.ContainsFunc(e.attributes, func(a *Attribute) bool { return a.Backend == backend }) {
			continue
		}
		sel := e.adapter.Select().From(e.ValueTable(backend), "attribute_id", "value")
		for i, col := range e.PrimaryKey {
			sel.Where(e.adapter.QuoteIdentifier(col)+" = ?", pk[i])
		}
		pairs, err := sel.Pairs(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			id, err := db.ToInt64(p.Key)
			if err != nil {
				return nil, err
			}
			name := AttributePrefix + strconv.FormatInt(id, 10)
			if _, ok := e.byName[name]; ok {
				values[name] = p.Value
			}
		}
	}
	return values, nil
}
