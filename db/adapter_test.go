package db

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate"
)

func TestQuoteNumeric(t *testing.T) {
	a, _, _ := newMock(t)
	tests := []struct {
		name  string
		value any
		typ   string
		want  string
	}{
		{"int leading digits", "123abc", "INT", "123"},
		{"int garbage", "abc", "INTEGER", "0"},
		{"int float value", 12.7, "int", "12"},
		{"int negative", "-8", "SMALLINT", "-8"},
		{"int bool", true, "TINYINT", "1"},
		{"int nil", nil, "MEDIUMINT", "0"},
		{"bigint hex", "0x1A", "BIGINT", "0x1A"},
		{"bigint octal looking", "0777", "BIGINT", "0777"},
		{"bigint exponent", "1e5xyz", "bigint", "1e5"},
		{"bigint signed", "-42", "SERIAL", "-42"},
		{"bigint garbage", "abc", "BIGINT", "0"},
		{"bigint string hex literal", "x'1A'", "BIGINT", "0"},
		{"bigint large", int64(9223372036854775807), "BIGINT", "9223372036854775807"},
		{"float", 1.5, "FLOAT", "1.500000"},
		{"decimal string", "2.25", "DECIMAL", "2.250000"},
		{"double precision garbage", "x", "DOUBLE PRECISION", "0.000000"},
		{"fixed leading", "3.5kg", "fixed", "3.500000"},
		{"dec int", 7, "DEC", "7.000000"},
		{"float nan", math.NaN(), "FLOAT", "0"},
		{"double infinity", math.Inf(1), "DOUBLE", "0"},
		{"decimal negative infinity", math.Inf(-1), "DECIMAL", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Quote(tt.value, tt.typ))
		})
	}
}

func TestQuoteIntegerRoundTrip(t *testing.T) {
	a, _, _ := newMock(t)
	for _, n := range []int{0, 1, -1, 42, 2147483647, -2147483648} {
		assert.Equal(t, strconv.Itoa(n), a.Quote(n, "INT"))
		assert.Equal(t, strconv.Itoa(n), a.Quote(strconv.Itoa(n), "INT"))
	}
}

func TestQuote(t *testing.T) {
	a, _, _ := newMock(t)
	assert.Equal(t, "'it''s'", a.Quote("it's", ""))
	assert.Equal(t, "NOW()", a.Quote(Expr("NOW()"), "INT"))
	assert.Equal(t, "1, 'a', NULL", a.Quote([]any{1, "a", nil}, ""))
	assert.Equal(t, "1, 2", a.Quote([]string{"1.9", "2"}, "INT"))
	assert.Equal(t, "'raw'", a.Quote([]byte("raw"), ""))

	sel := a.Select().From("users", "id").Where("name = ?", "bob")
	assert.Equal(t, "(SELECT `users`.`id` FROM `users` WHERE (name = 'bob'))", a.Quote(sel, ""))
}

func TestQuoteInto(t *testing.T) {
	a, _, _ := newMock(t)
	tests := []struct {
		name  string
		text  string
		value any
		typ   string
		count int
		want  string
	}{
		{"first only", "a = ? AND b = ?", 5, "INT", 1, "a = 5 AND b = ?"},
		{"all", "a = ? AND b = ?", 5, "INT", -1, "a = 5 AND b = 5"},
		{"count above occurrences", "a = ?", "x", "", 3, "a = 'x'"},
		{"zero count", "a = ?", "x", "", 0, "a = ?"},
		{"no placeholder", "a = 1", "x", "", -1, "a = 1"},
		{"value containing placeholder", "a = ? AND b = ?", "x?", "", 2, "a = 'x?' AND b = 'x?'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.QuoteInto(tt.text, tt.value, tt.typ, tt.count))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	a, _, _ := newMock(t)
	assert.Equal(t, "`users`.`name`", a.QuoteIdentifier("users.name"))
	assert.Equal(t, "`a``b`", a.QuoteIdentifier("a`b"))
	assert.Equal(t, "`db`.`users`", a.QuoteTableAs("db.users", "users", false))
	assert.Equal(t, "`users` AS `u`", a.QuoteTableAs("users", "u", true))
	assert.Equal(t, "`name` AS `n`", a.QuoteColumnAs("name", "n", false))

	t.Run("auto quote disabled", func(t *testing.T) {
		a, _, _ := newMock(t, WithAutoQuoteIdentifiers(false))
		assert.Equal(t, "users AS u", a.QuoteTableAs("users", "u", true))
		assert.Equal(t, "`users` AS `u`", a.QuoteTableAs("users", "u", false))
		assert.Equal(t, "`users`", a.QuoteIdentifier("users"))
	})
}

func TestLimit(t *testing.T) {
	a, _, _ := newMock(t)

	got, err := a.Limit("SELECT 1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 LIMIT 10", got)

	got, err = a.Limit("SELECT 1", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 LIMIT 10 OFFSET 20", got)

	_, err = a.Limit("SELECT 1", 0, 0)
	require.ErrorIs(t, err, tablegate.ErrInvalidLimit)
	assert.Contains(t, err.Error(), "count=0")

	_, err = a.Limit("SELECT 1", 10, -1)
	require.ErrorIs(t, err, tablegate.ErrInvalidLimit)
	assert.Contains(t, err.Error(), "offset=-1")
}

func TestInsert(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO `users` (`created`, `name`) VALUES (NOW(), ?)").
		WithArgs("bob").
		WillReturnResult(sqlmock.NewResult(7, 1))

	n, err := a.Insert(ctx, "users", map[string]any{"name": "bob", "created": Expr("NOW()")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	id, err := a.LastInsertID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = a.Insert(ctx, "users", nil)
	require.Error(t, err)
}

func TestUpdateDelete(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE `users` SET `name` = ?, `updated` = NOW() WHERE (id = 5) AND (active = 1)").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := a.Update(ctx, "users",
		map[string]any{"name": "alice", "updated": Expr("NOW()")},
		Term("id = ?", 5), Cond("active = 1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec("DELETE FROM `users` WHERE (name IN ('a', 'b'))").
		WillReturnResult(sqlmock.NewResult(0, 2))
	n, err = a.Delete(ctx, "users", Term("name IN (?)", []string{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectExec("DELETE FROM `users`").WillReturnResult(sqlmock.NewResult(0, 3))
	n, err = a.Delete(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	t.Run("pairs keep order", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name FROM users ORDER BY name").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(3), "Alice").
				AddRow(int64(1), "Bob").
				AddRow(int64(2), "Carol"))
		pairs, err := a.FetchPairs(ctx, "SELECT id, name FROM users ORDER BY name")
		require.NoError(t, err)
		assert.Equal(t, []Pair{
			{Key: int64(3), Value: "Alice"},
			{Key: int64(1), Value: "Bob"},
			{Key: int64(2), Value: "Carol"},
		}, pairs)
	})

	t.Run("row missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT * FROM users WHERE id = ?").
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		row, err := a.FetchRow(ctx, "SELECT * FROM users WHERE id = ?", 9)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("one and col", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT(*) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)))
		v, err := a.FetchOne(ctx, "SELECT COUNT(*) FROM users")
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		mock.ExpectQuery("SELECT name FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("a").AddRow("b"))
		col, err := a.FetchCol(ctx, "SELECT name FROM users")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, col)
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrors(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?)").
		WithArgs("bob").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob'"})
	_, err := a.Insert(ctx, "users", map[string]any{"name": "bob"})
	require.Error(t, err)
	assert.True(t, tablegate.IsQueryError(err))
	assert.True(t, tablegate.IsConstraintError(err))

	var qe *tablegate.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "exec", qe.Op)
	assert.Equal(t, "INSERT INTO `users` (`name`) VALUES (?)", qe.Query)

	mock.ExpectQuery("SELECT broken").WillReturnError(errors.New("syntax error"))
	_, err = a.FetchAll(ctx, "SELECT broken")
	require.Error(t, err)
	assert.True(t, tablegate.IsQueryError(err))
	assert.False(t, tablegate.IsConstraintError(err))
}

func TestTx(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM `users`").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		err := a.Tx(ctx, func(ctx context.Context) error {
			_, err := a.Delete(ctx, "users")
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()
		err := a.Tx(ctx, func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelegations(t *testing.T) {
	a, _, _ := newMock(t)
	ctx := context.Background()

	cols, err := a.DescribeTable(ctx, "users", "")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, 255, cols[0].Length)
	assert.True(t, cols[1].Primary)
	assert.True(t, cols[1].Identity)
	assert.True(t, cols[1].Unsigned)

	tables, err := a.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	assert.Equal(t, "LIKE", a.CaseInsensitiveLikeOperator())
	assert.Equal(t, "DATE(created)", a.TruncateTimestampToDate("created"))
	assert.Equal(t, "CREATE INDEX ON t (a, b)", a.GenerateCreateIndexStatement("t", []string{"a", "b"}))
	assert.Equal(t, "ANALYZE TABLE t", a.GenerateAnalyzeTableStatement("t"))
}
