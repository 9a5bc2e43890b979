package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/syssam/tablegate/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsConn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	conn := NewStatsConn(OpenDB(dialect.MySQL, db),
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM t").WillReturnError(errors.New("boom"))

	rows, err := conn.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	_, err = ScanAll(rows)
	require.NoError(t, err)
	_, err = conn.Exec(context.Background(), "DELETE FROM t")
	require.Error(t, err)

	s := conn.QueryStats().Stats()
	assert.EqualValues(t, 1, s.TotalQueries)
	assert.EqualValues(t, 1, s.TotalExecs)
	assert.EqualValues(t, 1, s.Errors)
	assert.EqualValues(t, 2, s.SlowQueries)
	assert.Equal(t, []string{"SELECT 1", "DELETE FROM t"}, slow)
	assert.Contains(t, s.String(), "queries=1 execs=1")

	conn.QueryStats().Reset()
	assert.Zero(t, conn.QueryStats().Stats().TotalQueries)

	conn.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, conn.SlowThreshold())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsSnapshotAvg(t *testing.T) {
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
	s := StatsSnapshot{TotalQueries: 2, TotalExecs: 2, TotalDuration: 4 * time.Millisecond}
	assert.Equal(t, time.Millisecond, s.AvgQueryDuration())
}

func TestDebugConn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	conn := NewDebugConn(OpenDB(dialect.SQLite, db), logger)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, conn.Begin(context.Background()))
	_, err = conn.Exec(context.Background(), "INSERT INTO t (a) VALUES (?)", 1)
	require.NoError(t, err)
	require.NoError(t, conn.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "begin transaction")
	assert.Contains(t, out, "INSERT INTO t (a) VALUES (?)")
	assert.Contains(t, out, "commit transaction")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Contains(t, line, "tx=", "every record inside the transaction carries its id")
	}
}
