package sql

import (
	"database/sql"
	"fmt"
	"strings"
)

// ResultSet is a fully read result, keeping the select-list order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Maps returns every row as a column name to value map.
func (rs *ResultSet) Maps() []map[string]any {
	if rs == nil {
		return nil
	}
	out := make([]map[string]any, len(rs.Rows))
	for i, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for j, c := range rs.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// Index returns the position of the named column, compared
// case-insensitively, or -1.
func (rs *ResultSet) Index(name string) int {
	if rs == nil {
		return -1
	}
	for i, c := range rs.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Col returns the values of the i-th column.
func (rs *ResultSet) Col(i int) []any {
	if rs == nil {
		return nil
	}
	out := make([]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

// ScanAll reads every row from rows and closes it. []byte values are copied
// into strings, since most drivers return textual columns that way and the
// buffers are reused between rows.
func ScanAll(rows *sql.Rows) (_ *ResultSet, rerr error) {
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/sql: rows: %w", err)
	}
	return rs, nil
}
