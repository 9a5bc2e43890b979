package table

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
)

// Kind tells how a field's value is stored.
type Kind int

// Field kinds.
const (
	// Physical fields are columns of the table itself.
	Physical Kind = iota
	// ManyToManyField fields are lists of values kept in a cross reference table.
	ManyToManyField
	// EavField fields are custom attributes kept in value tables.
	EavField
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Physical:
		return "physical"
	case ManyToManyField:
		return "many-to-many"
	case EavField:
		return "eav"
	default:
		return "unknown"
	}
}

// Field describes one named value slot of a Table. A Field is shared by all
// rows of its table and holds no row state: values are read and written
// through the row passed to Value and SetValue.
//
// The setters exist for CustomizeField callbacks. Once Table.Field returns
// a field it must be treated as read-only.
type Field struct {
	table        *Table
	name         string
	kind         Kind
	column       dialect.Column
	relationship *ManyToMany
	attribute    *Attribute

	required    *bool
	label       string
	note        string
	controlName string
	rules       *Rules
}

func newField(t *Table, name string, kind Kind, column dialect.Column) *Field {
	return &Field{table: t, name: name, kind: kind, column: column}
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Kind returns how the field is stored.
func (f *Field) Kind() Kind { return f.kind }

// Table returns the owning table.
func (f *Field) Table() *Table { return f.table }

// Column returns the column metadata of the field. Many-to-many and EAV
// fields carry synthesized metadata.
func (f *Field) Column() dialect.Column { return f.column }

// Relationship returns the relationship of a many-to-many field, or nil.
func (f *Field) Relationship() *ManyToMany { return f.relationship }

// Attribute returns the attribute of an EAV field, or nil.
func (f *Field) Attribute() *Attribute { return f.attribute }

// Value returns the field's value in row.
func (f *Field) Value(row *Row) any { return row.Get(f.name) }

// SetValue sets the field's value in row.
func (f *Field) SetValue(row *Row, value any) error { return row.Set(f.name, value) }

// SetRequired overrides whether the field is required.
func (f *Field) SetRequired(required bool) *Field {
	f.required = &required
	f.rules = nil
	return f
}

// Required reports whether the field needs a value. Unless overridden, a
// field is required when its column is not nullable and not boolean-like.
func (f *Field) Required() bool {
	if f.required != nil {
		return *f.required
	}
	return !f.column.Nullable && !f.IsType("boolean")
}

// SetLabel overrides the label.
func (f *Field) SetLabel(label string) *Field {
	f.label = label
	return f
}

// Label returns the label shown to users, inflected from the name unless
// set.
func (f *Field) Label() string {
	if f.label == "" {
		return inflectLabel(f.name)
	}
	return f.label
}

// SetNote sets a help text.
func (f *Field) SetNote(note string) *Field {
	f.note = note
	return f
}

// Note returns the help text.
func (f *Field) Note() string { return f.note }

// SetControlName overrides the control name.
func (f *Field) SetControlName(name string) *Field {
	f.controlName = name
	f.rules = nil
	return f
}

// ControlName returns the name used for form controls, "table:column"
// unless set.
func (f *Field) ControlName() string {
	if f.controlName == "" {
		return f.table.name + ":" + f.name
	}
	return f.controlName
}

// HTMLID returns the control name usable as an HTML id.
func (f *Field) HTMLID() string {
	return strings.ReplaceAll(f.ControlName(), ":", "_")
}

// GenericType returns the driver's generic classification of the column.
func (f *Field) GenericType() dialect.GenericType {
	return f.table.adapter.MapNativeTypeToGenericType(f.column.DataType, f.column.Length)
}

var (
	idSuffix   = regexp.MustCompile(`_id$`)
	smallWords = strings.NewReplacer(" Of ", " of ", " The ", " the ", " A ", " a ", " From ", " from ")
	titleCase  = cases.Title(language.English, cases.NoLower)
)

func inflectLabel(name string) string {
	label := strings.ReplaceAll(idSuffix.ReplaceAllString(name, ""), "_", " ")
	return smallWords.Replace(titleCase.String(label))
}

// Type categories. A category matches when the native data type is one of
// its members or when one of its sub-categories matches.
var (
	categoryTypes = map[string][]string{
		"string":  {"varchar", "char", "text", "character varying", "character"},
		"clob":    {"text", "mediumtext", "longtext"},
		"boolean": {"tinyint", "boolean", "bool"},
		"integer": {"int", "mediumint", "smallint", "bigint", "integer", "serial", "bigserial"},
		"float":   {"dec", "decimal", "double", "double precision", "fixed", "float", "real", "numeric"},
		"date":    {"date"},
	}
	categoryParts = map[string][]string{
		"numeric": {"integer", "float"},
	}
)

// IsType reports whether the field's native type is one of names, or
// belongs to one of the named categories: string, clob, boolean, integer,
// float, numeric, date, reference and manytomany.
func (f *Field) IsType(names ...string) bool {
	if slices.Contains(names, f.column.DataType) {
		return true
	}
	for _, name := range names {
		if f.inCategory(name) {
			return true
		}
	}
	return false
}

func (f *Field) inCategory(category string) bool {
	switch category {
	case "reference":
		_, ok := f.table.meta.Reference(f.name)
		return ok && f.kind == Physical
	case "manytomany":
		return f.kind == ManyToManyField
	}
	if f.kind == ManyToManyField {
		return false
	}
	if slices.Contains(categoryTypes[category], f.column.DataType) {
		return true
	}
	for _, part := range categoryParts[category] {
		if f.inCategory(part) {
			return true
		}
	}
	return false
}

// OptionPairs returns the (value, title) pairs a reference or many-to-many
// field can take, ordered by title. The title column of the referenced
// table is "name" or "title" when present, otherwise its first text column.
func (f *Field) OptionPairs(ctx context.Context) ([]db.Pair, error) {
	var ref dialect.Reference
	switch {
	case f.kind == ManyToManyField:
		ref = dialect.Reference{Table: f.relationship.ReferenceTable, Column: f.relationship.ReferenceColumn}
	default:
		r, ok := f.table.meta.Reference(f.name)
		if !ok {
			return nil, tablegate.NewNotFoundErrorWithID("reference", f.table.name+"."+f.name)
		}
		ref = r
	}
	meta, err := f.table.store.Table(ctx, ref.Table)
	if err != nil {
		return nil, err
	}
	title := titleColumn(meta.Columns, ref.Column, f.table.adapter)
	return f.table.adapter.Select().
		From(ref.Table, ref.Column, title).
		Order(title).
		Pairs(ctx)
}

func titleColumn(columns map[string]dialect.Column, fallback string, a *db.Adapter) string {
	for _, name := range []string{"name", "title"} {
		if _, ok := columns[name]; ok {
			return name
		}
	}
	ordered := make([]dialect.Column, 0, len(columns))
	for _, c := range columns {
		ordered = append(ordered, c)
	}
	slices.SortFunc(ordered, func(a, b dialect.Column) int { return a.Position - b.Position })
	for _, c := range ordered {
		if g := a.MapNativeTypeToGenericType(c.DataType, c.Length); g == dialect.TypeText || g == dialect.TypeClob {
			return c.Name
		}
	}
	return fallback
}
