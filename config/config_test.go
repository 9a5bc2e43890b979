package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.AutoQuoteIdentifiers)
	assert.Equal(t, DefaultSlowQueryThreshold, cfg.SlowQueryThreshold)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.Driver)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tablegate.yaml", `
driver: postgres
host: db.local
port: 5432
user: app
database: shop
params:
  sslmode: disable
metadata_dir: ./metadata
auto_quote_identifiers: false
slow_query_threshold: 250ms
`)
	t.Setenv("TABLEGATE_DATABASE", "shop_test")
	t.Setenv("TABLEGATE_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "shop_test", cfg.Database)
	assert.Equal(t, map[string]string{"sslmode": "disable"}, cfg.Params)
	assert.Equal(t, "./metadata", cfg.MetadataDir)
	assert.False(t, cfg.AutoQuoteIdentifiers)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryThreshold)
	assert.True(t, cfg.Debug)

	assert.Equal(t, db.ConnConfig{
		Host:     "db.local",
		Port:     5432,
		User:     "app",
		Database: "shop_test",
		Params:   map[string]string{"sslmode": "disable"},
	}, cfg.ConnConfig())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"no driver", Config{}, "driver not specified"},
		{"unknown driver", Config{Driver: "oracle"}, `unknown driver "oracle"`},
		{"negative page size", Config{Driver: "sqlite", PageSize: -1}, "page_size"},
		{"sqlite", Config{Driver: "sqlite"}, ""},
		{"mysql", Config{Driver: "mysql"}, ""},
		{"postgres", Config{Driver: "postgres"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "notes.yaml", `
table: notes
titles:
  singular: Note
  plural: Notes
columns:
  id:
    table_name: notes
    column_name: id
    column_position: 1
    data_type: integer
    primary: true
    primary_position: 1
    identity: true
  body:
    table_name: notes
    column_name: body
    column_position: 2
    data_type: text
    nullable: true
`)
	env, err := Open(ctx, &Config{
		Driver:             "sqlite",
		Database:           ":memory:",
		MetadataDir:        dir,
		WatchMetadata:      true,
		SlowQueryThreshold: time.Second,
		Debug:              true,
	}, nil)
	require.NoError(t, err)

	_, err = env.Adapter.Query(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	_, err = env.Adapter.Insert(ctx, "notes", map[string]any{"body": "hello"})
	require.NoError(t, err)

	page, err := env.Paginator.Fetch(ctx, env.Adapter.Select().From("notes"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, DefaultPageSize, page.Size)

	meta, err := env.Store.Table(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "Notes", meta.Titles.Plural)
	assert.Equal(t, []string{"id"}, meta.PrimaryKey())

	_, err = env.Store.Table(ctx, "missing")
	require.Error(t, err)

	stats := env.Stats()
	assert.GreaterOrEqual(t, stats.TotalExecs, int64(2))
	assert.GreaterOrEqual(t, stats.TotalQueries, int64(1))
	assert.Zero(t, stats.Errors)
	require.NoError(t, env.Close())
}

func TestOpenIntrospects(t *testing.T) {
	ctx := context.Background()
	env, err := Open(ctx, &Config{Driver: "sqlite", Database: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })

	_, err = env.Adapter.Query(ctx, "CREATE TABLE tags (id INTEGER PRIMARY KEY, title TEXT)")
	require.NoError(t, err)
	meta, err := env.Store.Table(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title"}, meta.ColumnNames())
	_, err = env.Store.Table(ctx, "missing")
	require.True(t, tablegate.IsNotFound(err))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &Config{Driver: "oracle"}, nil)
	var ue *db.UnknownDriverError
	require.ErrorAs(t, err, &ue)
}
