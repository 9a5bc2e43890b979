package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
)

func newMock(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	sdb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	return New(sql.OpenDB(dialect.Postgres, sdb), nil), mock
}

func rebind(q string) string { return sql.Rebind(dialect.Postgres, q) }

func TestDSN(t *testing.T) {
	dsn := DSN(db.ConnConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "it's secret",
		Database: "shop",
		Params:   map[string]string{"sslmode": "disable", "application_name": "tablegate"},
	})
	assert.Equal(t,
		`host=localhost port=5432 user=app password='it\'s secret' dbname=shop application_name=tablegate sslmode=disable`,
		dsn)
}

func TestQuoteInternal(t *testing.T) {
	d, _ := newMock(t)
	assert.Equal(t, "NULL", d.QuoteInternal(nil))
	assert.Equal(t, "TRUE", d.QuoteInternal(true))
	assert.Equal(t, "7", d.QuoteInternal(int64(7)))
	assert.Equal(t, "'it''s'", d.QuoteInternal("it's"))
	assert.Equal(t, ` E'a\\b'`, d.QuoteInternal(`a\b`))
}

func TestQuoteIdentifierInAdapter(t *testing.T) {
	d, _ := newMock(t)
	a := db.New(d)
	assert.Equal(t, `"public"."users"`, a.QuoteIdentifier("public.users"))
	assert.Equal(t, `"a""b"`, a.QuoteIdentifier(`a"b`))
}

func TestDescribeTable(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(rebind(primaryKeyQuery)).
		WithArgs("order_items", "").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "ordinal_position"}).
			AddRow("line", int64(2)).
			AddRow("order_id", int64(1)))
	mock.ExpectQuery(rebind(columnsQuery)).
		WithArgs("order_items", "").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_schema", "column_name", "ordinal_position", "data_type", "column_default",
			"is_nullable", "character_maximum_length", "numeric_precision", "numeric_scale", "is_identity",
		}).
			AddRow("public", "line", int64(1), "integer", nil, "NO", nil, int64(32), int64(0), "NO").
			AddRow("public", "order_id", int64(2), "integer", nil, "NO", nil, int64(32), int64(0), "NO").
			AddRow("public", "price", int64(3), "numeric", "0", "YES", nil, int64(10), int64(2), "NO").
			AddRow("public", "note", int64(4), "character varying", nil, "YES", int64(255), nil, nil, "NO"))

	cols, err := d.DescribeTable(context.Background(), "order_items", "")
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, 2, cols[0].PrimaryPosition)
	assert.Equal(t, 1, cols[1].PrimaryPosition)
	assert.Zero(t, cols[0].Precision)
	assert.Equal(t, 10, cols[2].Precision)
	assert.Equal(t, 2, cols[2].Scale)
	assert.Equal(t, 255, cols[3].Length)
	assert.Equal(t, "public", cols[3].SchemaName)
	assert.Equal(t, []string{"order_id", "line"}, dialect.PrimaryKey(map[string]dialect.Column{
		cols[0].Name: cols[0], cols[1].Name: cols[1],
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastInsertID(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("SELECT LASTVAL()").
		WillReturnRows(sqlmock.NewRows([]string{"lastval"}).AddRow(int64(12)))
	id, err := d.LastInsertID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestTotalRowCount(t *testing.T) {
	d, mock := newMock(t)
	a := db.New(d)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT "users".*, COUNT(*) OVER () AS "_total_row_count" FROM "users" WHERE (name ILIKE $1) LIMIT 2`).
		WithArgs("%a%").
		WillReturnRows(sqlmock.NewRows([]string{"id", db.TotalRowCountColumn}).
			AddRow(int64(1), int64(9)).
			AddRow(int64(2), int64(9)))

	sel := a.Select().From("users").Where("name "+a.CaseInsensitiveLikeOperator()+" ?", "%a%").Limit(2, 0)
	rows, total, err := a.FetchAllWithTotal(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, int64(9), total)
	assert.Equal(t, []map[string]any{{"id": int64(1)}, {"id": int64(2)}}, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingForeignKeyIndexes(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(rebind(foreignKeysQuery)).
		WithArgs("posts").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name", "table_name", "column_name"}).
			AddRow("posts_user_fk", "user_id", "users", "id").
			AddRow("posts_group_fk", "group_id", "groups", "id"))
	mock.ExpectQuery(rebind(indexesQuery)).
		WithArgs("posts").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "attname"}).
			AddRow("posts_pkey", "id").
			AddRow("posts_group_idx", "group_id"))

	missing, err := d.ListMissingForeignKeyIndexes(context.Background(), "posts")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"user_id"}}, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatements(t *testing.T) {
	d, _ := newMock(t)
	assert.Equal(t, `CREATE INDEX "idx_posts_user_id_created" ON "posts" ("user_id", "created")`,
		d.GenerateCreateIndexStatement("posts", []string{"user_id", "created"}))
	assert.Equal(t, `ANALYZE "posts"`, d.GenerateAnalyzeTableStatement("posts"))
	assert.Equal(t, "created::date", d.TruncateTimestampToDate("created"))
	assert.Equal(t, dialect.TypeTimestamp, d.MapNativeTypeToGenericType("timestamp without time zone", 0))
	assert.Equal(t, dialect.TypeMoney, d.MapNativeTypeToGenericType("money", 0))
	assert.Equal(t, dialect.TypeText, d.MapNativeTypeToGenericType("character varying", 255))
	assert.Equal(t, dialect.TypeInteger, d.MapNativeTypeToGenericType("bigserial", 0))
}
