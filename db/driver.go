package db

import (
	"context"

	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
)

// TotalRowCountColumn is the column drivers add to a select when the total
// row count is computed with a window function.
const TotalRowCountColumn = "_total_row_count"

// Driver holds every operation that differs between database vendors. The
// Adapter and the table layer never branch on vendor; they call a Driver.
type Driver interface {
	// Dialect returns the dialect name (see package dialect).
	Dialect() string

	// FetchAll runs query and returns the full result in select-list order.
	FetchAll(ctx context.Context, query string, args ...any) (*sql.ResultSet, error)
	// FetchCol returns the first column of every row.
	FetchCol(ctx context.Context, query string, args ...any) ([]any, error)
	// FetchOne returns the first column of the first row, or nil.
	FetchOne(ctx context.Context, query string, args ...any) (any, error)
	// Query executes a statement that does not return rows.
	Query(ctx context.Context, query string, args ...any) (sql.Result, error)
	// LastInsertID returns the identifier generated by the last insert.
	LastInsertID(ctx context.Context) (int64, error)

	// QuoteIdentifierSymbol returns the delimiter for quoted identifiers.
	QuoteIdentifierSymbol() string
	// QuoteInternal quotes a scalar as a SQL literal.
	QuoteInternal(value any) string

	ListTables(ctx context.Context) ([]string, error)
	// ListForeignKeyReferences maps each foreign key column of table to the
	// column it references.
	ListForeignKeyReferences(ctx context.Context, table string) (map[string]dialect.Reference, error)
	// ListMissingForeignKeyIndexes returns the foreign key column lists of
	// table that no index covers.
	ListMissingForeignKeyIndexes(ctx context.Context, table string) ([][]string, error)
	// ListUniqueConstraints maps each unique constraint of table to its
	// ordered column list.
	ListUniqueConstraints(ctx context.Context, table string) (map[string][]string, error)
	// DescribeTable returns the columns of table ordered by position.
	DescribeTable(ctx context.Context, table, schema string) ([]dialect.Column, error)
	MapNativeTypeToGenericType(native string, length int) dialect.GenericType

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	// PrepareSelectForTotalRowCalculation modifies sel so that its result
	// carries the row count without its LIMIT clause.
	PrepareSelectForTotalRowCalculation(sel *Select)
	// FetchTotalRowCount extracts the count from the result of a select that
	// went through PrepareSelectForTotalRowCalculation.
	FetchTotalRowCount(ctx context.Context, rs *sql.ResultSet) (int64, error)

	CaseInsensitiveLikeOperator() string
	TruncateTimestampToDate(expr string) string
	GenerateCreateIndexStatement(table string, columns []string) string
	GenerateAnalyzeTableStatement(table string) string

	Close() error
}

// QuoteIdentifierWith wraps ident in symbol, doubling embedded symbols.
// Drivers use it for the DDL they generate.
func QuoteIdentifierWith(symbol, ident string) string {
	var b []byte
	b = append(b, symbol...)
	for i := 0; i < len(ident); i++ {
		if len(symbol) == 1 && ident[i] == symbol[0] {
			b = append(b, symbol...)
		}
		b = append(b, ident[i])
	}
	b = append(b, symbol...)
	return string(b)
}
