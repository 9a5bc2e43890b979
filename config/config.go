// Package config loads connection and runtime settings and opens the
// adapter and metadata store they describe.
//
// Settings are layered, later layers winning: built-in defaults, a YAML
// file, then environment variables prefixed with TABLEGATE_.
//
//	driver: postgres
//	host: localhost
//	database: shop
//	params:
//	  sslmode: disable
//	metadata_dir: ./metadata
//	slow_query_threshold: 250ms
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/syssam/tablegate/db"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// TABLEGATE_METADATA_DIR overrides metadata_dir.
const EnvPrefix = "TABLEGATE_"

// Default values.
const (
	DefaultSlowQueryThreshold = 100 * time.Millisecond
	DefaultPageSize           = 50
)

// Config holds the settings of one database connection.
type Config struct {
	Driver   string            `koanf:"driver"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"`
	Params   map[string]string `koanf:"params"`

	// MetadataDir holds the table artifacts. When empty, metadata is read
	// from the database itself.
	MetadataDir string `koanf:"metadata_dir"`
	// WatchMetadata drops cached artifacts when files in MetadataDir change.
	WatchMetadata bool `koanf:"watch_metadata"`

	AutoQuoteIdentifiers bool          `koanf:"auto_quote_identifiers"`
	SlowQueryThreshold   time.Duration `koanf:"slow_query_threshold"`
	PageSize             int           `koanf:"page_size"`
	Debug                bool          `koanf:"debug"`
}

// Defaults returns the default settings keyed like the YAML file.
func Defaults() map[string]any {
	return map[string]any{
		"auto_quote_identifiers": true,
		"slow_query_threshold":   DefaultSlowQueryThreshold.String(),
		"page_size":              DefaultPageSize,
		"watch_metadata":         false,
		"debug":                  false,
	}
}

// Load reads the settings. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the driver is set and registered.
func (c *Config) Validate() error {
	switch {
	case c.Driver == "":
		return db.ErrNoDriver
	case !db.IsRegistered(c.Driver):
		return &db.UnknownDriverError{Name: c.Driver, Available: db.Drivers()}
	case c.PageSize < 0:
		return fmt.Errorf("config: page_size %d is negative", c.PageSize)
	}
	return nil
}

// ConnConfig returns the connection parameters handed to the driver.
func (c *Config) ConnConfig() db.ConnConfig {
	return db.ConnConfig{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		Params:   c.Params,
	}
}
