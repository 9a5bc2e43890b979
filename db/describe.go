package db

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/tablegate/dialect"
)

var (
	charType    = regexp.MustCompile(`^((?:var)?char)\((\d+)\)`)
	decimalType = regexp.MustCompile(`^(decimal|float)\((\d+),(\d+)\)`)
	intType     = regexp.MustCompile(`^((?:big|medium|small|tiny)?int)\((\d+)\)`)
)

// NativeType is a native column type split into its parts.
type NativeType struct {
	DataType  string
	Length    int
	Precision int
	Scale     int
	Unsigned  bool
}

// ParseNativeType parses a native type such as "varchar(255)",
// "decimal(10,2)" or "int(11) unsigned". The display width of integer types
// is dropped; it is not a length.
func ParseNativeType(native string) NativeType {
	t := NativeType{DataType: native, Unsigned: strings.Contains(native, "unsigned")}
	switch {
	case charType.MatchString(native):
		m := charType.FindStringSubmatch(native)
		t.DataType = m[1]
		t.Length, _ = strconv.Atoi(m[2])
	case decimalType.MatchString(native):
		m := decimalType.FindStringSubmatch(native)
		t.DataType = m[1]
		t.Precision, _ = strconv.Atoi(m[2])
		t.Scale, _ = strconv.Atoi(m[3])
	case intType.MatchString(native):
		t.DataType = intType.FindStringSubmatch(native)[1]
	}
	return t
}

// DescribeRow is one row of a native column description, in the shape of
// MySQL's DESCRIBE output.
type DescribeRow struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// DescribeColumns turns described rows into column metadata. Positions
// follow the row order, and primary key positions are assigned in the order
// the primary columns are scanned.
func DescribeColumns(table string, rows []DescribeRow) []dialect.Column {
	cols := make([]dialect.Column, 0, len(rows))
	pos := 1
	for i, row := range rows {
		t := ParseNativeType(row.Type)
		c := dialect.Column{
			TableName: table,
			Name:      row.Field,
			Position:  i + 1,
			DataType:  t.DataType,
			Default:   row.Default,
			Nullable:  row.Null == "YES",
			Length:    t.Length,
			Precision: t.Precision,
			Scale:     t.Scale,
			Unsigned:  t.Unsigned,
		}
		if strings.EqualFold(row.Key, "PRI") {
			c.Primary = true
			c.PrimaryPosition = pos
			c.Identity = row.Extra == "auto_increment"
			pos++
		}
		cols = append(cols, c)
	}
	return cols
}
