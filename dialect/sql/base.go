package sql

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Base provides the statement and transaction primitives shared by every
// vendor driver. Embed it in concrete drivers and override what differs.
type Base struct {
	Session Session
	Logger  *slog.Logger

	lastInsertID int64
}

// NewBase returns a Base over s. A nil logger discards records.
func NewBase(s Session, logger *slog.Logger) Base {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Base{Session: s, Logger: logger}
}

// ErrNotConnected is returned when a driver is used without a session.
var ErrNotConnected = errors.New("dialect/sql: database connection not established")

// FetchAll runs query and reads the whole result.
func (b *Base) FetchAll(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	if b.Session == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.Session.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return ScanAll(rows)
}

// FetchCol returns the first column of every row.
func (b *Base) FetchCol(ctx context.Context, query string, args ...any) ([]any, error) {
	rs, err := b.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rs.Col(0), nil
}

// FetchOne returns the first column of the first row, or nil when the query
// returns no rows.
func (b *Base) FetchOne(ctx context.Context, query string, args ...any) (any, error) {
	rs, err := b.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if rs.Len() == 0 || len(rs.Rows[0]) == 0 {
		return nil, nil
	}
	return rs.Rows[0][0], nil
}

// Query executes a statement that does not return rows. Every INSERT or
// REPLACE statement sets the value returned by LastInsertID, 0 when the
// driver reports no generated identifier. Other statements keep it.
func (b *Base) Query(ctx context.Context, query string, args ...any) (Result, error) {
	if b.Session == nil {
		return nil, ErrNotConnected
	}
	res, err := b.Session.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if isInsert(query) {
		id, err := res.LastInsertId()
		if err != nil {
			id = 0
		}
		b.lastInsertID = id
	}
	return res, nil
}

func isInsert(query string) bool {
	query = strings.TrimLeft(query, " \t\r\n(")
	for _, verb := range []string{"INSERT", "REPLACE"} {
		if len(query) >= len(verb) && strings.EqualFold(query[:len(verb)], verb) {
			return true
		}
	}
	return false
}

// LastInsertID returns the identifier generated by the most recent insert on
// this connection.
func (b *Base) LastInsertID(context.Context) (int64, error) {
	return b.lastInsertID, nil
}

// Begin starts a transaction.
func (b *Base) Begin(ctx context.Context) error {
	if b.Session == nil {
		return ErrNotConnected
	}
	return b.Session.Begin(ctx)
}

// Commit commits the current transaction.
func (b *Base) Commit() error {
	if b.Session == nil {
		return ErrNotConnected
	}
	return b.Session.Commit()
}

// Rollback rolls back the current transaction.
func (b *Base) Rollback() error {
	if b.Session == nil {
		return ErrNotConnected
	}
	return b.Session.Rollback()
}

// Close releases the session.
func (b *Base) Close() error {
	if b.Session == nil {
		return nil
	}
	b.Logger.Debug("closing database connection")
	return b.Session.Close()
}
