package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateFoundRows(t *testing.T) {
	a, mock, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT SQL_CALC_FOUND_ROWS `users`.* FROM `users` ORDER BY `id` LIMIT 2 OFFSET 2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(4)))
	mock.ExpectQuery("SELECT FOUND_ROWS()").
		WillReturnRows(sqlmock.NewRows([]string{"FOUND_ROWS()"}).AddRow(int64(7)))

	tc := a.Paginate(a.Select().From("users").Order("id").LimitPage(2, 2))
	assert.True(t, tc.Select().HasOption("SQL_CALC_FOUND_ROWS"))

	rows, total, err := tc.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []map[string]any{{"id": int64(3)}, {"id": int64(4)}}, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginateWindowCount(t *testing.T) {
	a, mock, d := newMock(t)
	d.window = true
	ctx := context.Background()

	t.Run("rows", func(t *testing.T) {
		mock.ExpectQuery("SELECT `users`.`id`, COUNT(*) OVER () AS `_total_row_count` FROM `users` LIMIT 1").
			WillReturnRows(sqlmock.NewRows([]string{"id", TotalRowCountColumn}).AddRow(int64(1), int64(5)))

		rows, total, err := a.FetchAllWithTotal(ctx, a.Select().From("users", "id").Limit(1, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Equal(t, []map[string]any{{"id": int64(1)}}, rows)
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery("SELECT `users`.`id`, COUNT(*) OVER () AS `_total_row_count` FROM `users` LIMIT 1 OFFSET 5").
			WillReturnRows(sqlmock.NewRows([]string{"id", TotalRowCountColumn}))

		rows, total, err := a.FetchAllWithTotal(ctx, a.Select().From("users", "id").Limit(1, 5))
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, rows)
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginateLeavesSelect(t *testing.T) {
	a, mock, d := newMock(t)
	d.window = true
	ctx := context.Background()

	sel := a.Select().From("users", "id").Order("id")
	for page, id := range []int64{1, 2} {
		offset := ""
		if page > 0 {
			offset = " OFFSET 1"
		}
		mock.ExpectQuery("SELECT `users`.`id`, COUNT(*) OVER () AS `_total_row_count` FROM `users` ORDER BY `id` LIMIT 1" + offset).
			WillReturnRows(sqlmock.NewRows([]string{"id", TotalRowCountColumn}).AddRow(id, int64(2)))

		rows, total, err := a.FetchAllWithTotal(ctx, sel.LimitPage(page+1, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, []map[string]any{{"id": id}}, rows)
	}
	query, _ := sel.Assemble()
	assert.Equal(t, "SELECT `users`.`id` FROM `users` ORDER BY `id` LIMIT 1 OFFSET 1", query)
	require.NoError(t, mock.ExpectationsWereMet())
}
