package tablegate

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned while a Table or Adapter is being
// set up and are not recoverable by retrying the same call.
var (
	// ErrMissingTableName is returned when a table is constructed without a name.
	ErrMissingTableName = errors.New("tablegate: table name is required")

	// ErrDuplicateRelationship is returned when a many-to-many relationship name
	// is registered twice or collides with a physical column.
	ErrDuplicateRelationship = errors.New("tablegate: duplicate relationship")

	// ErrUnknownField is returned when a field customization callback is
	// registered for a name the table does not know about.
	ErrUnknownField = errors.New("tablegate: unknown field")

	// ErrInvalidLimit is returned when LIMIT receives a non-positive count or a
	// negative offset.
	ErrInvalidLimit = errors.New("tablegate: invalid limit")
)

// Lookup errors.
var (
	// ErrNotFound is returned when a requested field or row does not exist.
	ErrNotFound = errors.New("tablegate: not found")

	// ErrInsufficientPrimaryKey is returned by Find when fewer values than
	// primary key columns are supplied.
	ErrInsufficientPrimaryKey = errors.New("tablegate: insufficient primary key values")
)

// Filter errors. Both are always caused by caller input.
var (
	// ErrInvalidOperator is returned when a filter receives an operator it
	// does not support.
	ErrInvalidOperator = errors.New("tablegate: invalid filter operator")

	// ErrMissingQueryVar is returned when a filter is applied without a
	// required query variable.
	ErrMissingQueryVar = errors.New("tablegate: missing filter query variable")
)

// NotFoundError represents an error when a field or row is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the name or key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("tablegate: %s not found (%v)", e.label, e.id)
	}
	return fmt.Sprintf("tablegate: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the label of the missing thing.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns what was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError with the given label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the key that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// FilterError describes a filter that could not be applied.
type FilterError struct {
	Filter string // Filter type, e.g. "text"
	Op     string // Operator, when known
	Var    string // Missing query variable, when known
	err    error
}

// Error returns the error string.
func (e *FilterError) Error() string {
	switch {
	case e.Var != "":
		return fmt.Sprintf("tablegate: %s filter: %q variable expected", e.Filter, e.Var)
	case e.Op != "":
		return fmt.Sprintf("tablegate: %s filter: %q is not a valid operator", e.Filter, e.Op)
	default:
		return fmt.Sprintf("tablegate: %s filter: %v", e.Filter, e.err)
	}
}

// Unwrap returns the sentinel the error is classified as.
func (e *FilterError) Unwrap() error {
	return e.err
}

// NewInvalidOperatorError returns a FilterError wrapping ErrInvalidOperator.
func NewInvalidOperatorError(filter, op string) *FilterError {
	return &FilterError{Filter: filter, Op: op, err: ErrInvalidOperator}
}

// NewMissingQueryVarError returns a FilterError wrapping ErrMissingQueryVar.
func NewMissingQueryVarError(filter, name string) *FilterError {
	return &FilterError{Filter: filter, Var: name, err: ErrMissingQueryVar}
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("tablegate: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// ValidationError represents a validation error for field values.
type ValidationError struct {
	Name string // Field control name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("tablegate: validator failed for field %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("tablegate: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError attaches statement context to a driver error.
type QueryError struct {
	Query string // Statement text, with ? placeholders
	Op    string // Operation (e.g., "fetch", "exec", "describe")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("tablegate: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tablegate: %s %q: %v", e.Op, e.Query, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(op, query string, err error) *QueryError {
	return &QueryError{Op: op, Query: query, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a write failure with the table and operation.
type MutationError struct {
	Table string // Table being written
	Op    string // Operation (e.g., "insert", "update", "delete")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("tablegate: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(table, op string, err error) *MutationError {
	return &MutationError{Table: table, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
