package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
)

// mockDriver is a MySQL flavored driver over sqlmock. With window set it
// counts total rows the way Postgres and SQLite do.
type mockDriver struct {
	sql.Base
	window bool
}

func newMock(t *testing.T, opts ...Option) (*Adapter, sqlmock.Sqlmock, *mockDriver) {
	t.Helper()
	sdb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	d := &mockDriver{Base: sql.NewBase(sql.OpenDB(dialect.MySQL, sdb), nil)}
	return New(d, opts...), mock, d
}

func (d *mockDriver) Dialect() string               { return dialect.MySQL }
func (d *mockDriver) QuoteIdentifierSymbol() string { return "`" }

func (d *mockDriver) QuoteInternal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return "'" + fmt.Sprint(v) + "'"
	}
}

func (d *mockDriver) ListTables(context.Context) ([]string, error) {
	return []string{"users"}, nil
}

func (d *mockDriver) ListForeignKeyReferences(context.Context, string) (map[string]dialect.Reference, error) {
	return nil, nil
}

func (d *mockDriver) ListMissingForeignKeyIndexes(context.Context, string) ([][]string, error) {
	return nil, nil
}

func (d *mockDriver) ListUniqueConstraints(context.Context, string) (map[string][]string, error) {
	return nil, nil
}

func (d *mockDriver) DescribeTable(_ context.Context, table, _ string) ([]dialect.Column, error) {
	return DescribeColumns(table, []DescribeRow{
		{Field: "name", Type: "varchar(255)", Null: "YES"},
		{Field: "id", Type: "int(11) unsigned", Null: "NO", Key: "PRI", Extra: "auto_increment"},
	}), nil
}

func (d *mockDriver) MapNativeTypeToGenericType(string, int) dialect.GenericType {
	return dialect.TypeText
}

func (d *mockDriver) PrepareSelectForTotalRowCalculation(sel *Select) {
	if d.window {
		sel.Columns("COUNT(*) OVER () AS " + TotalRowCountColumn)
		return
	}
	sel.Option("SQL_CALC_FOUND_ROWS")
}

func (d *mockDriver) FetchTotalRowCount(ctx context.Context, rs *sql.ResultSet) (int64, error) {
	if d.window {
		if rs.Len() == 0 {
			return 0, nil
		}
		return rs.Maps()[0][TotalRowCountColumn].(int64), nil
	}
	v, err := d.FetchOne(ctx, "SELECT FOUND_ROWS()")
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (d *mockDriver) CaseInsensitiveLikeOperator() string         { return "LIKE" }
func (d *mockDriver) TruncateTimestampToDate(expr string) string { return "DATE(" + expr + ")" }

func (d *mockDriver) GenerateCreateIndexStatement(table string, columns []string) string {
	return "CREATE INDEX ON " + table + " (" + strings.Join(columns, ", ") + ")"
}

func (d *mockDriver) GenerateAnalyzeTableStatement(table string) string {
	return "ANALYZE TABLE " + table
}

var _ Driver = (*mockDriver)(nil)
