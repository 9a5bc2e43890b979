package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of statement errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsConn wraps a Session with statistics collection.
type StatsConn struct {
	Session
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsConn.
type StatsOption func(*StatsConn)

// WithSlowThreshold sets the threshold for slow query detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsConn) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsConn) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to logger.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		logger.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsConn wraps a Session with statistics collection.
//
//	conn, _ := sql.Open(ctx, "mysql", dialect.MySQL, dsn)
//	stats := sql.NewStatsConn(conn, sql.WithSlowThreshold(200*time.Millisecond))
func NewStatsConn(s Session, opts ...StatsOption) *StatsConn {
	c := &StatsConn{
		Session:       s,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (c *StatsConn) QueryStats() *QueryStats {
	return c.stats
}

// SlowThreshold returns the current slow query threshold.
func (c *StatsConn) SlowThreshold() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (c *StatsConn) SetSlowThreshold(threshold time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slowThreshold = threshold
}

// Query executes a query and records statistics.
func (c *StatsConn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.Session.Query(ctx, query, args...)
	c.record(ctx, query, args, start, err, true)
	return rows, err
}

// Exec executes a statement and records statistics.
func (c *StatsConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := c.Session.Exec(ctx, query, args...)
	c.record(ctx, query, args, start, err, false)
	return res, err
}

func (c *StatsConn) record(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		c.stats.TotalQueries.Add(1)
	} else {
		c.stats.TotalExecs.Add(1)
	}
	c.stats.TotalDuration.Add(int64(duration))

	if err != nil {
		c.stats.Errors.Add(1)
	}

	c.mu.RLock()
	threshold := c.slowThreshold
	hook := c.slowHook
	c.mu.RUnlock()

	if duration > threshold {
		c.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, args, duration)
		}
	}
}

// DebugConn wraps a Session with debug logging. Statements run inside a
// transaction carry the transaction id.
type DebugConn struct {
	Session
	logger *slog.Logger
	txID   string
}

// NewDebugConn wraps a Session with debug logging.
func NewDebugConn(s Session, logger *slog.Logger) *DebugConn {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugConn{Session: s, logger: logger}
}

func (c *DebugConn) attrs(query string, args []any) []any {
	attrs := []any{slog.String("query", query), slog.Any("args", args)}
	if c.txID != "" {
		attrs = append(attrs, slog.String("tx", c.txID))
	}
	return attrs
}

// Query executes a query and logs it.
func (c *DebugConn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.logger.DebugContext(ctx, "query", c.attrs(query, args)...)
	return c.Session.Query(ctx, query, args...)
}

// Exec executes a statement and logs it.
func (c *DebugConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.logger.DebugContext(ctx, "exec", c.attrs(query, args)...)
	return c.Session.Exec(ctx, query, args...)
}

// Begin starts a transaction and logs its id.
func (c *DebugConn) Begin(ctx context.Context) error {
	if err := c.Session.Begin(ctx); err != nil {
		return err
	}
	c.txID = uuid.NewString()
	c.logger.DebugContext(ctx, "begin transaction", slog.String("tx", c.txID))
	return nil
}

// Commit commits the transaction and logs it.
func (c *DebugConn) Commit() error {
	c.logger.Debug("commit transaction", slog.String("tx", c.txID))
	c.txID = ""
	return c.Session.Commit()
}

// Rollback rolls back the transaction and logs it.
func (c *DebugConn) Rollback() error {
	c.logger.Debug("rollback transaction", slog.String("tx", c.txID))
	c.txID = ""
	return c.Session.Rollback()
}

// Ensure interfaces are implemented.
var (
	_ Session = (*StatsConn)(nil)
	_ Session = (*DebugConn)(nil)
)
