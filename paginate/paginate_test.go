package paginate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
	_ "github.com/syssam/tablegate/dialect/sqlite"
)

func open(t *testing.T, rows int) *db.Adapter {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, dialect.SQLite, db.ConnConfig{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	a := db.New(d)
	_, err = a.Query(ctx, "CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT)")
	require.NoError(t, err)
	for i := 1; i <= rows; i++ {
		_, err := a.Insert(ctx, "posts", map[string]any{"title": fmt.Sprintf("post %d", i)})
		require.NoError(t, err)
	}
	return a
}

func TestFetch(t *testing.T) {
	a := open(t, 7)
	ctx := context.Background()
	p := New(a, WithPageSize(3))
	assert.Equal(t, 3, p.PageSize())

	tests := []struct {
		page     int
		ids      []int64
		next     bool
		previous bool
	}{
		{1, []int64{1, 2, 3}, true, false},
		{2, []int64{4, 5, 6}, true, true},
		{3, []int64{7}, false, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint("page ", tt.page), func(t *testing.T) {
			page, err := p.Fetch(ctx, a.Select().From("posts").Order("id"), tt.page)
			require.NoError(t, err)
			assert.Equal(t, int64(7), page.Total)
			assert.Equal(t, 3, page.PageCount())
			assert.Equal(t, tt.next, page.HasNext())
			assert.Equal(t, tt.previous, page.HasPrevious())
			assert.Equal(t, (tt.page-1)*3, page.Offset())
			ids := make([]int64, len(page.Rows))
			for i, row := range page.Rows {
				ids[i] = row["id"].(int64)
				assert.NotContains(t, row, db.TotalRowCountColumn)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestFetchFiltered(t *testing.T) {
	a := open(t, 7)
	page, err := New(a).Fetch(context.Background(),
		a.Select().From("posts").Where("id > ?", 5), 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.Size)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Rows, 2)
	assert.False(t, page.HasNext())
}

func TestFetchPastEnd(t *testing.T) {
	a := open(t, 2)
	page, err := New(a, WithPageSize(5)).Fetch(context.Background(), a.Select().From("posts"), 4)
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Zero(t, page.Total)
	assert.Zero(t, page.PageCount())
}

func TestFetchInvalid(t *testing.T) {
	a := open(t, 0)
	_, err := New(a).Fetch(context.Background(), a.Select().From("posts"), 0)
	require.ErrorIs(t, err, tablegate.ErrInvalidLimit)

	_, err = New(a, WithPageSize(0)).Fetch(context.Background(), a.Select().From("posts"), 1)
	require.ErrorIs(t, err, tablegate.ErrInvalidLimit)
}
