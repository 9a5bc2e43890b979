// Package metadata loads the pre-generated description of a table: its
// titles, columns, foreign key references and unique constraints.
//
// Artifacts are produced ahead of time (see Generate and Encode) and are
// read-only at runtime. A Store caches them per process and is safe for
// concurrent use.
package metadata

import (
	"fmt"

	"github.com/syssam/tablegate/dialect"
)

// Titles are the human readable names of a table.
type Titles struct {
	Singular string `yaml:"singular,omitempty" msgpack:"singular,omitempty"`
	Plural   string `yaml:"plural,omitempty" msgpack:"plural,omitempty"`
}

// Table is the metadata artifact of one table.
type Table struct {
	Name       string                       `yaml:"table" msgpack:"table"`
	Titles     Titles                       `yaml:"titles" msgpack:"titles"`
	Columns    map[string]dialect.Column    `yaml:"columns" msgpack:"columns"`
	References map[string]dialect.Reference `yaml:"references,omitempty" msgpack:"references,omitempty"`
	Unique     map[string][]string          `yaml:"unique,omitempty" msgpack:"unique,omitempty"`
}

// Column returns the metadata of the named column.
func (t *Table) Column(name string) (dialect.Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// HasColumn reports whether the table has a physical column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Columns[name]
	return ok
}

// Reference returns the foreign key target of column.
func (t *Table) Reference(column string) (dialect.Reference, bool) {
	r, ok := t.References[column]
	return r, ok
}

// ColumnNames returns the column names in table position order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.orderedColumns() {
		names[i] = c.Name
	}
	return names
}

func (t *Table) orderedColumns() []dialect.Column {
	cols := make([]dialect.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c)
	}
	sortColumns(cols)
	return cols
}

// PrimaryKey returns the primary key columns in key order. It is never nil.
func (t *Table) PrimaryKey() []string {
	pk := dialect.PrimaryKey(t.Columns)
	if pk == nil {
		return []string{}
	}
	return pk
}

// Validate checks the artifact for internal consistency.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("metadata: artifact has no table name")
	}
	for name, c := range t.Columns {
		if c.Name != name {
			return fmt.Errorf("metadata: %s: column key %q does not match column name %q", t.Name, name, c.Name)
		}
	}
	for col := range t.References {
		if !t.HasColumn(col) {
			return fmt.Errorf("metadata: %s: reference on unknown column %q", t.Name, col)
		}
	}
	return dialect.ValidatePrimaryKey(t.Name, t.Columns)
}
