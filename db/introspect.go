package db

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/tablegate/dialect/sql"
)

// ToString converts a scanned column value to a string. NULL becomes "".
func ToString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// ToInt64 converts a scanned column value to an integer.
func ToInt64(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string, []byte:
		s := strings.TrimSpace(ToString(v))
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("db: %q is not an integer", s)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("db: unexpected %T value for an integer", v)
	}
}

// UncoveredColumnLists returns the foreign key column lists that are not a
// leading prefix of any index column list. Input order is preserved.
func UncoveredColumnLists(foreignKeys, indexes [][]string) [][]string {
	var missing [][]string
	for _, fk := range foreignKeys {
		covered := false
		for _, idx := range indexes {
			if len(idx) >= len(fk) && slices.Equal(idx[:len(fk)], fk) {
				covered = true
				break
			}
		}
		if !covered {
			missing = append(missing, fk)
		}
	}
	return missing
}

// IndexName returns the name used for generated indexes on table.columns.
func IndexName(table string, columns []string) string {
	return "idx_" + table + "_" + strings.Join(columns, "_")
}

// GroupColumnLists groups the values of column col by the value of column
// key. Groups keep the order in which keys first appear and values keep row
// order. A negative index yields nil.
func GroupColumnLists(rs *sql.ResultSet, key, col int) [][]string {
	if key < 0 || col < 0 {
		return nil
	}
	var (
		groups [][]string
		index  = make(map[string]int)
	)
	for _, row := range rs.Rows {
		k := ToString(row[key])
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], ToString(row[col]))
	}
	return groups
}

// GroupColumnMap is like GroupColumnLists but keys the groups by name.
func GroupColumnMap(rs *sql.ResultSet, key, col int) map[string][]string {
	out := make(map[string][]string)
	if key < 0 || col < 0 {
		return out
	}
	for _, row := range rs.Rows {
		k := ToString(row[key])
		out[k] = append(out[k], ToString(row[col]))
	}
	return out
}
