package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/tablegate/dialect"
)

// ExecQuerier wraps the standard Exec and Query methods.
// It is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// txBeginner is implemented by *sql.DB and *sql.Conn.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Session is one logical database connection: statements, explicit
// transaction control and the dialect needed to rebind placeholders.
// Statements always use ? placeholders.
type Session interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTx() bool
	Dialect() string
	Close() error
}

// Conn implements Session over a single pinned connection. It is not safe for
// concurrent use; one Conn belongs to one unit of work.
type Conn struct {
	ex      ExecQuerier
	tx      *sql.Tx
	dialect string
	closer  func() error
}

// Open opens the database with database/sql and pins one connection from the
// pool, so connection-scoped state (last insert id, transactions, temporary
// tables) behaves as on a single connection.
func Open(ctx context.Context, driverName, dialectName, source string) (*Conn, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("dialect/sql: pin connection: %w", err), db.Close())
	}
	return &Conn{
		ex:      conn,
		dialect: dialectName,
		closer: func() error {
			return errors.Join(conn.Close(), db.Close())
		},
	}, nil
}

// OpenDB wraps an existing handle. Callers that pass a *sql.DB are
// responsible for limiting it to one open connection.
func OpenDB(dialectName string, ex ExecQuerier) *Conn {
	return &Conn{ex: ex, dialect: dialectName}
}

// Dialect implements Session.
func (c *Conn) Dialect() string {
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(c.dialect, name) {
			return name
		}
	}
	return c.dialect
}

func (c *Conn) current() ExecQuerier {
	if c.tx != nil {
		return c.tx
	}
	return c.ex
}

// Exec implements Session.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.current().ExecContext(ctx, Rebind(c.Dialect(), query), args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

// Query implements Session. The caller must close the returned rows.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	//nolint:rowserrcheck // rows.Err() is checked by the caller after iteration
	rows, err := c.current().QueryContext(ctx, Rebind(c.Dialect(), query), args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return rows, nil
}

// Begin starts a transaction on the pinned connection.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return ErrTxStarted
	}
	b, ok := c.ex.(txBeginner)
	if !ok {
		return fmt.Errorf("dialect/sql: %T does not support transactions", c.ex)
	}
	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dialect/sql: begin: %w", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the active transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dialect/sql: commit: %w", err)
	}
	return nil
}

// Rollback rolls back the active transaction.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("dialect/sql: rollback: %w", err)
	}
	return nil
}

// InTx reports whether a transaction is active.
func (c *Conn) InTx() bool { return c.tx != nil }

// Close rolls back any open transaction and releases the connection.
func (c *Conn) Close() error {
	var err error
	if c.tx != nil {
		err = c.Rollback()
	}
	if c.closer != nil {
		err = errors.Join(err, c.closer())
	}
	return err
}

var (
	// ErrTxStarted is returned when Begin is called inside a transaction.
	ErrTxStarted = errors.New("dialect/sql: cannot start a transaction within a transaction")
	// ErrNoTx is returned by Commit and Rollback without an active transaction.
	ErrNoTx = errors.New("dialect/sql: no active transaction")
)

var _ Session = (*Conn)(nil)

// Rebind rewrites ? placeholders into the dialect's native form. Only
// Postgres needs rewriting ($1, $2, ...). Placeholders inside quoted literals
// or quoted identifiers are left untouched.
func Rebind(dialectName, query string) string {
	if dialectName != dialect.Postgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b     strings.Builder
		n     int
		quote rune
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type (
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)
