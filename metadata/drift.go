package metadata

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
)

// DriftError is one difference between an artifact and the live table.
type DriftError struct {
	Table   string
	Column  string
	Message string
	// Breaking is set when writes built from the artifact can fail.
	Breaking bool
}

func (e *DriftError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// DriftResult holds the differences found by Diff.
type DriftResult struct {
	Errors   []*DriftError
	Warnings []*DriftError
}

// HasErrors returns true if there are any errors.
func (r *DriftResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any warnings.
func (r *DriftResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if any difference is breaking.
func (r *DriftResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the result.
func (r *DriftResult) String() string {
	var sb strings.Builder
	write := func(title string, list []*DriftError) {
		if len(list) == 0 {
			return
		}
		sb.WriteString(title + ":\n")
		for _, e := range list {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *DriftResult) add(err *DriftError, asWarning bool) {
	if asWarning {
		r.Warnings = append(r.Warnings, err)
	} else {
		r.Errors = append(r.Errors, err)
	}
}

// DriftOption configures Diff.
type DriftOption func(*driftConfig)

type driftConfig struct {
	allowDroppedColumn bool
	allowNullToNotNull bool
}

// AllowDroppedColumns reports artifact columns missing from the database
// as warnings instead of errors.
func AllowDroppedColumns() DriftOption {
	return func(c *driftConfig) {
		c.allowDroppedColumn = true
	}
}

// AllowNullToNotNull reports columns that became NOT NULL as warnings
// instead of errors.
func AllowNullToNotNull() DriftOption {
	return func(c *driftConfig) {
		c.allowNullToNotNull = true
	}
}

// Diff compares an artifact with metadata generated from the live table.
// Differences that make writes built from the artifact fail are errors.
//
//	result := metadata.Diff(artifact, live)
//	if result.HasBreakingChanges() {
//		log.Fatal("metadata drift:\n", result)
//	}
func Diff(artifact, live *Table, opts ...DriftOption) *DriftResult {
	cfg := &driftConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &DriftResult{}
	name := artifact.Name

	for _, col := range artifact.ColumnNames() {
		want := artifact.Columns[col]
		got, ok := live.Columns[col]
		if !ok {
			result.add(&DriftError{Table: name, Column: col, Message: "column no longer exists", Breaking: true},
				cfg.allowDroppedColumn)
			continue
		}
		if want.DataType != got.DataType {
			result.Warnings = append(result.Warnings, &DriftError{
				Table:   name,
				Column:  col,
				Message: fmt.Sprintf("column type changed from %s to %s", want.DataType, got.DataType),
			})
		}
		if want.Nullable && !got.Nullable {
			result.add(&DriftError{Table: name, Column: col, Message: "column changed from NULL to NOT NULL", Breaking: true},
				cfg.allowNullToNotNull)
		}
		if want.Length > 0 && got.Length > 0 && got.Length < want.Length {
			result.Warnings = append(result.Warnings, &DriftError{
				Table:   name,
				Column:  col,
				Message: fmt.Sprintf("column length reduced from %d to %d may truncate data", want.Length, got.Length),
			})
		}
	}

	for _, col := range live.ColumnNames() {
		if artifact.HasColumn(col) {
			continue
		}
		c := live.Columns[col]
		if !c.Nullable && c.Default == nil && !c.Identity {
			result.Errors = append(result.Errors, &DriftError{
				Table:    name,
				Column:   col,
				Message:  "new NOT NULL column without default value makes inserts fail",
				Breaking: true,
			})
			continue
		}
		result.Warnings = append(result.Warnings, &DriftError{Table: name, Column: col, Message: "column is not in the artifact"})
	}

	if want, got := artifact.PrimaryKey(), live.PrimaryKey(); !slices.Equal(want, got) {
		result.Errors = append(result.Errors, &DriftError{
			Table:    name,
			Message:  fmt.Sprintf("primary key changed from %v to %v", want, got),
			Breaking: true,
		})
	}

	for col, ref := range artifact.References {
		if got, ok := live.References[col]; !ok || got != ref {
			result.Warnings = append(result.Warnings, &DriftError{
				Table:   name,
				Column:  col,
				Message: fmt.Sprintf("foreign key to %s.%s no longer exists", ref.Table, ref.Column),
			})
		}
	}
	slices.SortFunc(result.Warnings, func(a, b *DriftError) int { return strings.Compare(a.Error(), b.Error()) })
	return result
}

// Verify compares an artifact with the live table it describes.
func Verify(ctx context.Context, a *db.Adapter, artifact *Table, schema string, opts ...DriftOption) (*DriftResult, error) {
	live, err := Generate(ctx, a, artifact.Name, schema)
	switch {
	case tablegate.IsNotFound(err):
		return &DriftResult{Errors: []*DriftError{{Table: artifact.Name, Message: "table no longer exists", Breaking: true}}}, nil
	case err != nil:
		return nil, err
	}
	return Diff(artifact, live, opts...), nil
}
