package dialect

import (
	"fmt"
	"sort"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// GenericType is the vendor-neutral classification of a native column type.
type GenericType string

// Generic column types returned by Driver.MapNativeTypeToGenericType.
const (
	TypeBoolean   GenericType = "boolean"
	TypeInteger   GenericType = "integer"
	TypeFloat     GenericType = "float"
	TypeText      GenericType = "text"
	TypeClob      GenericType = "clob"
	TypeTimestamp GenericType = "timestamp"
	TypeDate      GenericType = "date"
	TypeTime      GenericType = "time"
	TypeMoney     GenericType = "money"
	TypeBlob      GenericType = "blob"
)

// GenericTypes lists every generic type in declaration order.
var GenericTypes = []GenericType{
	TypeBoolean, TypeInteger, TypeFloat, TypeText, TypeClob,
	TypeTimestamp, TypeDate, TypeTime, TypeMoney, TypeBlob,
}

// Column describes one physical column, as produced by introspection or read
// from a metadata artifact. Length, Precision and Scale are zero when the
// native type does not carry them.
type Column struct {
	SchemaName      string  `yaml:"schema_name,omitempty" msgpack:"schema_name,omitempty"`
	TableName       string  `yaml:"table_name" msgpack:"table_name"`
	Name            string  `yaml:"column_name" msgpack:"column_name"`
	Position        int     `yaml:"column_position" msgpack:"column_position"`
	DataType        string  `yaml:"data_type" msgpack:"data_type"`
	Default         *string `yaml:"default,omitempty" msgpack:"default,omitempty"`
	Nullable        bool    `yaml:"nullable" msgpack:"nullable"`
	Length          int     `yaml:"length,omitempty" msgpack:"length,omitempty"`
	Precision       int     `yaml:"precision,omitempty" msgpack:"precision,omitempty"`
	Scale           int     `yaml:"scale,omitempty" msgpack:"scale,omitempty"`
	Unsigned        bool    `yaml:"unsigned,omitempty" msgpack:"unsigned,omitempty"`
	Primary         bool    `yaml:"primary" msgpack:"primary"`
	PrimaryPosition int     `yaml:"primary_position,omitempty" msgpack:"primary_position,omitempty"`
	Identity        bool    `yaml:"identity,omitempty" msgpack:"identity,omitempty"`
}

// Reference is the target of a foreign key.
type Reference struct {
	Table  string `yaml:"table" msgpack:"table"`
	Column string `yaml:"column" msgpack:"column"`
}

// PrimaryKey returns the names of the primary key columns ordered by their
// position within the key.
func PrimaryKey(columns map[string]Column) []string {
	var pk []Column
	for _, c := range columns {
		if c.Primary {
			pk = append(pk, c)
		}
	}
	sort.Slice(pk, func(i, j int) bool { return pk[i].PrimaryPosition < pk[j].PrimaryPosition })
	names := make([]string, len(pk))
	for i, c := range pk {
		names[i] = c.Name
	}
	return names
}

// ValidatePrimaryKey checks that primary key positions start at 1, are unique
// and have no gaps.
func ValidatePrimaryKey(table string, columns map[string]Column) error {
	seen := make(map[int]string)
	for name, c := range columns {
		if !c.Primary {
			continue
		}
		if c.PrimaryPosition < 1 {
			return fmt.Errorf("dialect: %s.%s: primary position %d is not valid", table, name, c.PrimaryPosition)
		}
		if other, ok := seen[c.PrimaryPosition]; ok {
			return fmt.Errorf("dialect: %s: columns %q and %q share primary position %d", table, other, name, c.PrimaryPosition)
		}
		seen[c.PrimaryPosition] = name
	}
	for i := 1; i <= len(seen); i++ {
		if _, ok := seen[i]; !ok {
			return fmt.Errorf("dialect: %s: primary key positions are not contiguous (missing %d)", table, i)
		}
	}
	return nil
}
