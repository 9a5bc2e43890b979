package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/syssam/tablegate/dialect/sql"
)

// ConnConfig holds the connection parameters shared by all drivers. Drivers
// turn it into their own DSN format. For SQLite, Database is the file path.
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string
}

// Registration describes how to open and build one driver.
type Registration struct {
	// SQLDriver is the database/sql driver name.
	SQLDriver string
	// DSN formats a connection string for SQLDriver.
	DSN func(ConnConfig) string
	// New builds the Driver over an open session.
	New func(s sql.Session, logger *slog.Logger) Driver
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register adds a driver under the dialect name.
// Called by driver packages in their init() functions.
func Register(name string, r Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = r
}

// Lookup retrieves a registration by dialect name.
func Lookup(name string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

// Drivers returns all registered driver names (sorted).
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a driver is registered.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// UnknownDriverError is returned when an unknown driver is requested.
type UnknownDriverError struct {
	Name      string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("db: unknown driver %q (available: %v)", e.Name, e.Available)
}

// ErrNoDriver is returned by Open when no driver name is given.
var ErrNoDriver = errors.New("db: driver not specified")

type openOptions struct {
	logger *slog.Logger
	wrap   []func(sql.Session) sql.Session
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithDriverLogger sets the logger handed to the driver.
func WithDriverLogger(logger *slog.Logger) OpenOption {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithSession wraps the opened session, e.g. with sql.NewStatsConn or
// sql.NewDebugConn. Wrappers apply in the order given.
func WithSession(wrap func(sql.Session) sql.Session) OpenOption {
	return func(o *openOptions) {
		o.wrap = append(o.wrap, wrap)
	}
}

// Open connects with the driver registered under name. The connection is a
// single pinned connection, not a pool.
func Open(ctx context.Context, name string, cc ConnConfig, opts ...OpenOption) (Driver, error) {
	if name == "" {
		return nil, ErrNoDriver
	}
	r, ok := Lookup(name)
	if !ok {
		return nil, &UnknownDriverError{Name: name, Available: Drivers()}
	}
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}
	conn, err := sql.Open(ctx, r.SQLDriver, name, r.DSN(cc))
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", name, err)
	}
	var s sql.Session = conn
	for _, wrap := range o.wrap {
		s = wrap(s)
	}
	return r.New(s, o.logger), nil
}
