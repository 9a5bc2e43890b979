package sqlerr

import (
	stdsql "database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate"
)

type stateErr string

func (e stateErr) Error() string    { return "state " + string(e) }
func (e stateErr) SQLState() string { return string(e) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		unique bool
		fk     bool
		check  bool
	}{
		{name: "pq unique", err: &pq.Error{Code: "23505"}, unique: true},
		{name: "pq foreign key", err: &pq.Error{Code: "23503"}, fk: true},
		{name: "pq check", err: &pq.Error{Code: "23514"}, check: true},
		{name: "sqlstate", err: fmt.Errorf("exec: %w", stateErr("23505")), unique: true},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, unique: true},
		{name: "mysql child row", err: &mysql.MySQLError{Number: 1452}, fk: true},
		{name: "mysql parent row", err: &mysql.MySQLError{Number: 1451}, fk: true},
		{name: "mysql check", err: &mysql.MySQLError{Number: 3819}, check: true},
		{name: "sqlite message", err: errors.New("constraint failed: CHECK constraint failed: qty"), check: true},
		{name: "other", err: errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.fk, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))

			got := Classify(tt.err)
			constraint := tt.unique || tt.fk || tt.check
			assert.Equal(t, constraint, tablegate.IsConstraintError(got))
			assert.Equal(t, constraint, IsConstraintError(tt.err))
			assert.ErrorIs(t, got, tt.err)
		})
	}
	assert.NoError(t, Classify(nil))
	assert.False(t, IsConstraintError(nil))
}

func TestClassifyKeepsConstraintError(t *testing.T) {
	err := tablegate.NewConstraintError("unique", errors.New("dup"))
	assert.Equal(t, err, Classify(err))
}

func TestSQLiteConstraint(t *testing.T) {
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec("CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT UNIQUE)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO tags (name) VALUES ('go')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO tags (name) VALUES ('go')")
	require.Error(t, err)
	assert.True(t, IsUniqueConstraintError(err))
	assert.True(t, tablegate.IsConstraintError(Classify(err)))
}
