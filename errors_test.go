package tablegate_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		assert.Equal(t, "tablegate: row not found", tablegate.NewNotFoundError("row").Error())
		assert.Equal(t, "tablegate: field not found (users.nope)",
			tablegate.NewNotFoundErrorWithID("field", "users.nope").Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := tablegate.NewNotFoundErrorWithID("table", "posts")
		assert.True(t, errors.Is(err, tablegate.ErrNotFound))
		assert.Equal(t, "table", err.Label())
		assert.Equal(t, "posts", err.ID())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := tablegate.NewNotFoundError("field")
		assert.True(t, tablegate.IsNotFound(err))
		assert.True(t, tablegate.IsNotFound(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, tablegate.IsNotFound(tablegate.ErrNotFound))
		assert.False(t, tablegate.IsNotFound(errors.New("other error")))
		assert.False(t, tablegate.IsNotFound(nil))
	})
}

func TestFilterError(t *testing.T) {
	t.Run("InvalidOperator", func(t *testing.T) {
		err := tablegate.NewInvalidOperatorError("text", "sounds-like")
		assert.Equal(t, `tablegate: text filter: "sounds-like" is not a valid operator`, err.Error())
		assert.ErrorIs(t, err, tablegate.ErrInvalidOperator)
		assert.NotErrorIs(t, err, tablegate.ErrMissingQueryVar)
	})

	t.Run("MissingQueryVar", func(t *testing.T) {
		err := tablegate.NewMissingQueryVarError("reference", "value")
		assert.Equal(t, `tablegate: reference filter: "value" variable expected`, err.Error())
		assert.ErrorIs(t, fmt.Errorf("apply: %w", err), tablegate.ErrMissingQueryVar)

		var fe *tablegate.FilterError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "value", fe.Var)
	})
}

func TestConstraintError(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: users.email")
	err := tablegate.NewConstraintError("unique", cause)
	assert.Equal(t, "tablegate: constraint failed: unique", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, tablegate.IsConstraintError(fmt.Errorf("insert: %w", err)))
	assert.False(t, tablegate.IsConstraintError(cause))
	assert.False(t, tablegate.IsConstraintError(nil))
}

func TestValidationError(t *testing.T) {
	cause := errors.New("value is too long")
	err := tablegate.NewValidationError("users:email", cause)
	assert.Equal(t, `tablegate: validator failed for field "users:email": value is too long`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, tablegate.IsValidationError(err))
	assert.False(t, tablegate.IsValidationError(cause))
}

func TestQueryError(t *testing.T) {
	cause := errors.New("no such table: posts")
	err := tablegate.NewQueryError("fetch", "SELECT * FROM posts", cause)
	assert.Equal(t, `tablegate: fetch "SELECT * FROM posts": no such table: posts`, err.Error())
	assert.Equal(t, "tablegate: exec: boom", tablegate.NewQueryError("exec", "", errors.New("boom")).Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, tablegate.IsQueryError(err))
	assert.False(t, tablegate.IsQueryError(nil))
}

func TestMutationError(t *testing.T) {
	cause := tablegate.NewQueryError("exec", "INSERT", errors.New("boom"))
	err := tablegate.NewMutationError("posts", "insert", cause)
	assert.Equal(t, `tablegate: insert posts: tablegate: exec "INSERT": boom`, err.Error())
	assert.True(t, tablegate.IsMutationError(err))
	assert.True(t, tablegate.IsQueryError(err))
	assert.False(t, tablegate.IsMutationError(cause))
}

func TestRollbackError(t *testing.T) {
	cause := errors.New("connection reset")
	err := errors.Join(errors.New("insert failed"), &tablegate.RollbackError{Err: cause})
	assert.ErrorIs(t, err, cause)
	var re *tablegate.RollbackError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "tablegate: rollback failed: connection reset", re.Error())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "tablegate:metadata:users", tablegate.CacheKey{Table: "users"}.String())
	assert.Equal(t, "tablegate:metadata:shop:users", tablegate.CacheKey{Namespace: "shop", Table: "users"}.String())
}
