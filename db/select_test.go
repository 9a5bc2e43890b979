package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectAssemble(t *testing.T) {
	a, _, _ := newMock(t)

	tests := []struct {
		name     string
		sel      *Select
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "all columns",
			sel:     a.Select().From("users"),
			wantSQL: "SELECT `users`.* FROM `users`",
		},
		{
			name: "columns where order limit",
			sel: a.Select().From("users", "id", "name").
				Where("active = ?", 1).
				Order("name", "id DESC").
				Limit(10, 20),
			wantSQL:  "SELECT `users`.`id`, `users`.`name` FROM `users` WHERE (active = ?) ORDER BY `name`, `id` DESC LIMIT 10 OFFSET 20",
			wantArgs: []any{1},
		},
		{
			name: "alias and join",
			sel: a.Select().From("users AS u", "id").
				JoinLeft("groups AS g", "g.id = u.group_id", "name AS group_name"),
			wantSQL: "SELECT `u`.`id`, `g`.`name` AS `group_name` FROM `users` AS `u` LEFT JOIN `groups` AS `g` ON g.id = u.group_id",
		},
		{
			name: "expressions group having",
			sel: a.Select().From("orders", "customer_id", "SUM(total) AS sum_total").
				Group("customer_id").
				Having("SUM(total) > ?", 100),
			wantSQL:  "SELECT `orders`.`customer_id`, SUM(total) AS `sum_total` FROM `orders` GROUP BY `customer_id` HAVING (SUM(total) > ?)",
			wantArgs: []any{100},
		},
		{
			name:    "distinct and option",
			sel:     a.Select().Distinct().Option("SQL_CALC_FOUND_ROWS").Option("sql_calc_found_rows").From("users", "name"),
			wantSQL: "SELECT DISTINCT SQL_CALC_FOUND_ROWS `users`.`name` FROM `users`",
		},
		{
			name:     "or where",
			sel:      a.Select().From("users").Where("a = ?", 1).OrWhere("b = ?", 2),
			wantSQL:  "SELECT `users`.* FROM `users` WHERE (a = ?) OR (b = ?)",
			wantArgs: []any{1, 2},
		},
		{
			name:    "limit page",
			sel:     a.Select().From("users").LimitPage(3, 50),
			wantSQL: "SELECT `users`.* FROM `users` LIMIT 50 OFFSET 100",
		},
		{
			name:    "first page has no offset",
			sel:     a.Select().From("users").LimitPage(0, 50),
			wantSQL: "SELECT `users`.* FROM `users` LIMIT 50",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := tt.sel.Assemble()
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectConditionSets(t *testing.T) {
	a, _, _ := newMock(t)

	sel := a.Select().From("users").
		Where("active = ?", 1).
		WhereConditionSet("name", "name LIKE ?", "%a%").
		WhereConditionSet("email", "email IS NULL").
		WhereConditionSet("name", "name LIKE ?", "%b%")

	query, args := sel.Assemble()
	assert.Equal(t,
		"SELECT `users`.* FROM `users` WHERE (active = ?) AND ((name LIKE ?) OR (name LIKE ?)) AND ((email IS NULL))",
		query)
	assert.Equal(t, []any{1, "%a%", "%b%"}, args)
	assert.Equal(t, []string{"name", "email"}, sel.ConditionSets())
}

func TestSelectQuoteWithAlias(t *testing.T) {
	a, _, _ := newMock(t)
	sel := a.Select()
	assert.Equal(t, "`users`.`name`", sel.QuoteWithAlias("users", "name"))
	assert.Equal(t, "`name`", sel.QuoteWithAlias("", "name"))
}

func TestSelectString(t *testing.T) {
	a, _, _ := newMock(t)
	sel := a.Select().From("users", "id").Where("name = ? AND age > ?", "o'neil", 30)
	assert.Equal(t, "SELECT `users`.`id` FROM `users` WHERE (name = 'o''neil' AND age > 30)", sel.String())
}

func TestSelectExecute(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT `users`.`id`, `users`.`name` FROM `users` WHERE (id = ?)").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Alice"))
	row, err := a.Select().From("users", "id", "name").Where("id = ?", 1).Row(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "Alice"}, row)

	mock.ExpectQuery("SELECT `users`.`id`, `users`.`name` FROM `users` ORDER BY `name`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Alice").AddRow(int64(2), "Bob"))
	pairs, err := a.Select().From("users", "id", "name").Order("name").Pairs(ctx)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInterpolate(t *testing.T) {
	a, _, _ := newMock(t)

	sel := a.Select().From("users").
		Where("name = ?", "nobody?").
		Where("role = ?", "') OR 1=1 -- ")
	assert.Equal(t,
		"SELECT `users`.* FROM `users` WHERE (name = 'nobody?') AND (role = ''') OR 1=1 -- ')",
		sel.String())

	assert.Equal(t, "note <> '?' AND `a?` = 5 AND id = 6",
		a.Interpolate("note <> '?' AND `a?` = ? AND id = ?", 5, 6))
	assert.Equal(t, "a = 1 AND b = ?", a.Interpolate("a = ? AND b = ?", 1))
	assert.Equal(t, "a = ?", a.Interpolate("a = ?"))
}

func TestSelectClone(t *testing.T) {
	a, _, _ := newMock(t)
	sel := a.Select().From("users", "id").
		Where("active = ?", 1).
		WhereConditionSet("name", "name LIKE ?", "%a%")

	c := sel.Clone()
	c.Columns("name").
		Where("id > ?", 5).
		WhereConditionSet("name", "name LIKE ?", "%b%").
		Option("SQL_CALC_FOUND_ROWS")

	query, args := sel.Assemble()
	assert.Equal(t, "SELECT `users`.`id` FROM `users` WHERE (active = ?) AND ((name LIKE ?))", query)
	assert.Equal(t, []any{1, "%a%"}, args)

	query, args = c.Assemble()
	assert.Equal(t,
		"SELECT SQL_CALC_FOUND_ROWS `users`.`id`, `users`.`name` FROM `users` WHERE (active = ?) AND ((name LIKE ?) OR (name LIKE ?)) AND (id > ?)",
		query)
	assert.Equal(t, []any{1, "%a%", "%b%", 5}, args)
}
