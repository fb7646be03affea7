// Package config loads sqlforge configuration.
//
// Values are layered with koanf, highest precedence first: command line
// flags, SQLFORGE_ environment variables, the YAML config file and the
// built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
)

// Config holds all configuration options.
type Config struct {
	Dialect string        `koanf:"dialect"`
	Output  string        `koanf:"output"`
	Verbose bool          `koanf:"verbose"`
	Cache   CacheConfig   `koanf:"cache"`
	Log     LogConfig     `koanf:"log"`
	Flush   FlushConfig   `koanf:"flush"`
	Target  *TargetConfig `koanf:"target"`
}

// CacheConfig sizes the compiled statement cache.
type CacheConfig struct {
	Size int `koanf:"size"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// FlushConfig tunes the flush scheduler.
type FlushConfig struct {
	BatchSize int `koanf:"batch_size"`
}

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, postgres, mysql, duckdb
	DSN  string `koanf:"dsn"`

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, secrets, settings)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into an adapter.Config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		DSN:      t.DSN,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// Validate checks the configuration, including the target when one is set.
func (c *Config) Validate() error {
	if _, ok := dialect.Get(c.Dialect); !ok {
		return fmt.Errorf("unknown dialect %q (available: %s)", c.Dialect, strings.Join(dialect.List(), ", "))
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size)
	}
	if c.Flush.BatchSize < 0 {
		return fmt.Errorf("flush.batch_size must not be negative, got %d", c.Flush.BatchSize)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Output {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("output must be auto, text, markdown or json, got %q", c.Output)
	}
	if c.Target != nil {
		return c.Target.Validate()
	}
	return nil
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", s, err)
	}
	return l, nil
}
