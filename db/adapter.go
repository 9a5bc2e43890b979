package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
	"github.com/syssam/tablegate/dialect/sql/sqlerr"
)

// Adapter is the single entry point the upper layers use to run SQL. It owns
// value and identifier quoting and statement assembly, and delegates vendor
// specific work to its Driver.
//
// An Adapter wraps one connection and is not safe for concurrent use.
type Adapter struct {
	driver    Driver
	autoQuote bool
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithAutoQuoteIdentifiers sets whether identifiers quoted in "auto" mode
// (statement assembly, select building) are delimited. Default is true.
func WithAutoQuoteIdentifiers(b bool) Option {
	return func(a *Adapter) {
		a.autoQuote = b
	}
}

// WithLogger sets the adapter's logger. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an Adapter over d.
func New(d Driver, opts ...Option) *Adapter {
	a := &Adapter{
		driver:    d,
		autoQuote: true,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Driver returns the underlying driver.
func (a *Adapter) Driver() Driver { return a.driver }

// Logger returns the adapter's logger.
func (a *Adapter) Logger() *slog.Logger { return a.logger }

// Select returns an empty select bound to a.
func (a *Adapter) Select() *Select {
	return newSelect(a)
}

func (a *Adapter) wrap(op, query string, err error) error {
	return tablegate.NewQueryError(op, query, sqlerr.Classify(err))
}

// FetchAll runs query and returns every row as a column name to value map.
func (a *Adapter) FetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rs, err := a.fetch(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rs.Maps(), nil
}

func (a *Adapter) fetch(ctx context.Context, query string, args ...any) (*sql.ResultSet, error) {
	rs, err := a.driver.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, a.wrap("fetch", query, err)
	}
	return rs, nil
}

// FetchRow returns the first row of the result, or nil when there is none.
// The whole result is read; restrict the query to one row.
func (a *Adapter) FetchRow(ctx context.Context, query string, args ...any) (map[string]any, error) {
	rows, err := a.FetchAll(ctx, query, args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// FetchOne returns the first column of the first row, or nil.
func (a *Adapter) FetchOne(ctx context.Context, query string, args ...any) (any, error) {
	v, err := a.driver.FetchOne(ctx, query, args...)
	if err != nil {
		return nil, a.wrap("fetch", query, err)
	}
	return v, nil
}

// FetchCol returns the first column of every row.
func (a *Adapter) FetchCol(ctx context.Context, query string, args ...any) ([]any, error) {
	col, err := a.driver.FetchCol(ctx, query, args...)
	if err != nil {
		return nil, a.wrap("fetch", query, err)
	}
	return col, nil
}

// Pair is one key/value entry returned by FetchPairs.
type Pair struct {
	Key   any
	Value any
}

// FetchPairs returns the first two columns of the result as ordered pairs.
// A later row with an equal key replaces the earlier value in place.
func (a *Adapter) FetchPairs(ctx context.Context, query string, args ...any) ([]Pair, error) {
	rs, err := a.fetch(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rs.Columns) < 2 {
		return nil, a.wrap("fetch", query, fmt.Errorf("db: pairs need two columns, got %d", len(rs.Columns)))
	}
	pairs := make([]Pair, 0, rs.Len())
	index := make(map[string]int, rs.Len())
	for _, row := range rs.Rows {
		k := fmt.Sprint(row[0])
		if i, ok := index[k]; ok {
			pairs[i].Value = row[1]
			continue
		}
		index[k] = len(pairs)
		pairs = append(pairs, Pair{Key: row[0], Value: row[1]})
	}
	return pairs, nil
}

// Query executes a raw statement.
func (a *Adapter) Query(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := a.driver.Query(ctx, query, args...)
	if err != nil {
		return nil, a.wrap("exec", query, err)
	}
	return res, nil
}

func (a *Adapter) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := a.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, a.wrap("exec", query, err)
	}
	return n, nil
}

func sortedKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Insert inserts one row and returns the number of affected rows. Columns
// are emitted in sorted order; Expr values are inlined.
func (a *Adapter) Insert(ctx context.Context, table string, data map[string]any) (int64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("db: insert into %s: no columns", table)
	}
	var (
		cols = make([]string, 0, len(data))
		vals = make([]string, 0, len(data))
		args = make([]any, 0, len(data))
	)
	for _, col := range sortedKeys(data) {
		cols = append(cols, a.quoteIdentifierAs(col, "", true))
		if e, ok := data[col].(Expr); ok {
			vals = append(vals, string(e))
			continue
		}
		vals = append(vals, "?")
		args = append(args, data[col])
	}
	query := "INSERT INTO " + a.quoteIdentifierAs(table, "", true) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
	return a.exec(ctx, query, args...)
}

// Update updates the rows matching where and returns the number of affected
// rows. Without where terms every row is updated.
func (a *Adapter) Update(ctx context.Context, table string, data map[string]any, where ...Where) (int64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("db: update %s: no columns", table)
	}
	var (
		set  = make([]string, 0, len(data))
		args = make([]any, 0, len(data))
	)
	for _, col := range sortedKeys(data) {
		val := "?"
		if e, ok := data[col].(Expr); ok {
			val = string(e)
		} else {
			args = append(args, data[col])
		}
		set = append(set, a.quoteIdentifierAs(col, "", true)+" = "+val)
	}
	query := "UPDATE " + a.quoteIdentifierAs(table, "", true) + " SET " + strings.Join(set, ", ")
	if w := a.WhereExpr(where...); w != "" {
		query += " WHERE " + w
	}
	return a.exec(ctx, query, args...)
}

// Delete deletes the rows matching where and returns the number of affected
// rows. Without where terms every row is deleted.
func (a *Adapter) Delete(ctx context.Context, table string, where ...Where) (int64, error) {
	query := "DELETE FROM " + a.quoteIdentifierAs(table, "", true)
	if w := a.WhereExpr(where...); w != "" {
		query += " WHERE " + w
	}
	return a.exec(ctx, query)
}

// WhereExpr renders where terms, each parenthesized and joined with AND.
func (a *Adapter) WhereExpr(where ...Where) string {
	terms := make([]string, 0, len(where))
	for _, w := range where {
		term := w.Cond
		if w.Value != nil {
			term = a.QuoteInto(term, w.Value, "", -1)
		}
		terms = append(terms, "("+term+")")
	}
	return strings.Join(terms, " AND ")
}

// Limit appends a LIMIT clause to query. OFFSET is added only when offset
// is positive.
func (a *Adapter) Limit(query string, count, offset int) (string, error) {
	if count <= 0 {
		return "", fmt.Errorf("%w: LIMIT argument count=%d is not valid", tablegate.ErrInvalidLimit, count)
	}
	if offset < 0 {
		return "", fmt.Errorf("%w: LIMIT argument offset=%d is not valid", tablegate.ErrInvalidLimit, offset)
	}
	query += fmt.Sprintf(" LIMIT %d", count)
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}
	return query, nil
}

// LastInsertID returns the identifier generated by the last insert on this
// connection.
func (a *Adapter) LastInsertID(ctx context.Context) (int64, error) {
	id, err := a.driver.LastInsertID(ctx)
	if err != nil {
		return 0, a.wrap("last insert id", "", err)
	}
	return id, nil
}

// Begin starts a transaction.
func (a *Adapter) Begin(ctx context.Context) error {
	return a.driver.Begin(ctx)
}

// Commit commits the current transaction.
func (a *Adapter) Commit() error {
	return a.driver.Commit()
}

// Rollback rolls back the current transaction.
func (a *Adapter) Rollback() error {
	return a.driver.Rollback()
}

// Tx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (a *Adapter) Tx(ctx context.Context, fn func(context.Context) error) error {
	if err := a.Begin(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rerr := a.Rollback(); rerr != nil {
			return errors.Join(err, &tablegate.RollbackError{Err: rerr})
		}
		return err
	}
	return a.Commit()
}

// Close closes the driver's connection.
func (a *Adapter) Close() error {
	return a.driver.Close()
}

// DescribeTable returns the columns of table ordered by position. The
// primary key positions are validated.
func (a *Adapter) DescribeTable(ctx context.Context, table, schema string) ([]dialect.Column, error) {
	cols, err := a.driver.DescribeTable(ctx, table, schema)
	if err != nil {
		return nil, a.wrap("describe", table, err)
	}
	byName := make(map[string]dialect.Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	if err := dialect.ValidatePrimaryKey(table, byName); err != nil {
		return nil, err
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	return cols, nil
}

// ListTables lists the tables of the current database.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	tables, err := a.driver.ListTables(ctx)
	if err != nil {
		return nil, a.wrap("list tables", "", err)
	}
	return tables, nil
}

// ListForeignKeyReferences maps each foreign key column of table to the
// column it references.
func (a *Adapter) ListForeignKeyReferences(ctx context.Context, table string) (map[string]dialect.Reference, error) {
	refs, err := a.driver.ListForeignKeyReferences(ctx, table)
	if err != nil {
		return nil, a.wrap("list foreign keys", table, err)
	}
	return refs, nil
}

// ListUniqueConstraints maps each unique constraint of table to its columns.
func (a *Adapter) ListUniqueConstraints(ctx context.Context, table string) (map[string][]string, error) {
	uniques, err := a.driver.ListUniqueConstraints(ctx, table)
	if err != nil {
		return nil, a.wrap("list unique constraints", table, err)
	}
	return uniques, nil
}

// ListMissingForeignKeyIndexes returns the foreign key column lists of table
// that no index covers.
func (a *Adapter) ListMissingForeignKeyIndexes(ctx context.Context, table string) ([][]string, error) {
	missing, err := a.driver.ListMissingForeignKeyIndexes(ctx, table)
	if err != nil {
		return nil, a.wrap("list missing indexes", table, err)
	}
	return missing, nil
}

// CaseInsensitiveLikeOperator returns the driver's case-insensitive LIKE.
func (a *Adapter) CaseInsensitiveLikeOperator() string {
	return a.driver.CaseInsensitiveLikeOperator()
}

// TruncateTimestampToDate returns an expression truncating expr to a date.
func (a *Adapter) TruncateTimestampToDate(expr string) string {
	return a.driver.TruncateTimestampToDate(expr)
}

// GenerateCreateIndexStatement returns a CREATE INDEX statement.
func (a *Adapter) GenerateCreateIndexStatement(table string, columns []string) string {
	return a.driver.GenerateCreateIndexStatement(table, columns)
}

// GenerateAnalyzeTableStatement returns a statement refreshing the
// planner statistics of table.
func (a *Adapter) GenerateAnalyzeTableStatement(table string) string {
	return a.driver.GenerateAnalyzeTableStatement(table)
}

// MapNativeTypeToGenericType classifies a native column type.
func (a *Adapter) MapNativeTypeToGenericType(native string, length int) dialect.GenericType {
	return a.driver.MapNativeTypeToGenericType(native, length)
}
