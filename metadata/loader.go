package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
)

// Loader reads the artifact of one table. A missing artifact is reported
// as a *tablegate.NotFoundError.
type Loader interface {
	Load(ctx context.Context, table string) (*Table, error)
}

// Dir loads artifacts named <table>.yaml or <table>.msgpack from a
// directory. The first format found in Formats order wins.
type Dir string

// Path returns the path of the first existing artifact for table.
func (d Dir) Path(table string) (string, Format, error) {
	for _, f := range Formats {
		path := filepath.Join(string(d), table+f.Ext())
		if _, err := os.Stat(path); err == nil {
			return path, f, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("metadata: %w", err)
		}
	}
	return "", "", tablegate.NewNotFoundErrorWithID("metadata", table)
}

// Load implements Loader.
func (d Dir) Load(_ context.Context, table string) (*Table, error) {
	path, f, err := d.Path(table)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	t, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	if t.Name != table {
		return nil, fmt.Errorf("metadata: %s describes table %q, not %q", path, t.Name, table)
	}
	return t, nil
}

// Memory serves artifacts held in memory.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewMemory returns a Memory loader holding tables.
func NewMemory(tables ...*Table) *Memory {
	m := &Memory{tables: make(map[string]*Table)}
	for _, t := range tables {
		m.tables[t.Name] = t
	}
	return m
}

// Put adds or replaces an artifact.
func (m *Memory) Put(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.Name] = t
}

// Load implements Loader.
func (m *Memory) Load(_ context.Context, table string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, tablegate.NewNotFoundErrorWithID("metadata", table)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Introspect loads artifacts straight from the database schema. Titles are
// left empty.
type Introspect struct {
	Adapter *db.Adapter
	Schema  string
}

// Load implements Loader.
func (i Introspect) Load(ctx context.Context, table string) (*Table, error) {
	return Generate(ctx, i.Adapter, table, i.Schema)
}

// Generate builds the artifact of table from the live schema.
func Generate(ctx context.Context, a *db.Adapter, table, schema string) (*Table, error) {
	cols, err := a.DescribeTable(ctx, table, schema)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, tablegate.NewNotFoundErrorWithID("table", table)
	}
	refs, err := a.ListForeignKeyReferences(ctx, table)
	if err != nil {
		return nil, err
	}
	unique, err := a.ListUniqueConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	t := &Table{
		Name:       table,
		Columns:    make(map[string]dialect.Column, len(cols)),
		References: refs,
		Unique:     unique,
	}
	for _, c := range cols {
		t.Columns[c.Name] = c
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

var (
	_ Loader = Dir("")
	_ Loader = (*Memory)(nil)
	_ Loader = Introspect{}
)
