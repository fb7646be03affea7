package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	_ "github.com/leapstack-labs/sqlforge/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/ansi"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dialect", "", "")
	fs.String("log-level", "", "")
	fs.Int("cache-size", 0, "")
	fs.Int("batch-size", 0, "")
	fs.String("target", "", "")
	fs.String("dsn", "", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDialect, cfg.Dialect)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, DefaultBatchSize, cfg.Flush.BatchSize)
	assert.Nil(t, cfg.Target)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
dialect: Postgres
cache:
  size: 64
log:
  level: debug
  format: json
target:
  type: sqlite
  database: ./shop.db
  options:
    busy_timeout: "5000"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, "5000", cfg.Target.Options["busy_timeout"])

	ac := cfg.Target.AdapterConfig()
	assert.Equal(t, "./shop.db", ac.Path)
	assert.Equal(t, "./shop.db", ac.Database)
}

func TestLoad_DiscoversFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(ConfigFileNameAlt, []byte("dialect: sqlite\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Dialect)
	assert.Equal(t, ConfigFileNameAlt, filepath.Base(cfg.File))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
dialect: postgres
cache:
  size: 64
log:
  level: debug
`)
	t.Setenv("SQLFORGE_CACHE__SIZE", "128")
	t.Setenv("SQLFORGE_LOG__LEVEL", "error")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--log-level", "info", "--target", "sqlite", "--dsn", "file:test.db"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Dialect, "file beats defaults")
	assert.Equal(t, 128, cfg.Cache.Size, "env beats file")
	assert.Equal(t, "info", cfg.Log.Level, "flag beats env")
	assert.Equal(t, DefaultBatchSize, cfg.Flush.BatchSize, "unset flags keep lower layers")
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, "file:test.db", cfg.Target.DSN)
}

func TestLoad_ExpandsTargetEnvVars(t *testing.T) {
	t.Setenv("SHOP_DB_PASSWORD", "hunter2")
	path := writeConfig(t, `
target:
  type: sqlite
  password: ${SHOP_DB_PASSWORD}
  user: ${SHOP_DB_UNSET}
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Target.Password)
	assert.Equal(t, "${SHOP_DB_UNSET}", cfg.Target.User)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{name: "unknown dialect", content: "dialect: cobol\n", msg: `unknown dialect "cobol"`},
		{name: "negative cache", content: "cache:\n  size: -1\n", msg: "cache.size"},
		{name: "negative batch", content: "flush:\n  batch_size: -5\n", msg: "flush.batch_size"},
		{name: "bad level", content: "log:\n  level: loud\n", msg: "invalid log.level"},
		{name: "bad format", content: "log:\n  format: xml\n", msg: "log.format"},
		{name: "bad output", content: "output: html\n", msg: "output must be"},
		{name: "malformed yaml", content: "dialect: [\n", msg: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestTargetConfig_Validate(t *testing.T) {
	assert.NoError(t, (&TargetConfig{Type: "SQLite"}).Validate())
	assert.ErrorContains(t, (&TargetConfig{}).Validate(), "target type is required")

	err := (&TargetConfig{Type: "oracle"}).Validate()
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Contains(t, unknown.Available, "sqlite")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogConfig{Level: "info", Format: "json"})
	logger.Debug("hidden")
	logger.Info("flushed", slog.Int("rows", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"flushed"`)
	assert.Contains(t, out, `"rows":3`)

	buf.Reset()
	logger = NewLogger(&buf, LogConfig{Level: "nonsense"})
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}
