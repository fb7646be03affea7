package config

// Default configuration values.
const (
	DefaultDialect   = "ansi"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultCacheSize = 500
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
	DefaultBatchSize = 100
)

// ConfigFileName is the config file looked up in the working directory.
const ConfigFileName = "sqlforge.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "sqlforge.yml"

// EnvPrefix prefixes environment variables. A double underscore
// separates nesting levels: SQLFORGE_TARGET__DSN sets target.dsn.
const EnvPrefix = "SQLFORGE_"

func defaults() map[string]any {
	return map[string]any{
		"dialect":          DefaultDialect,
		"output":           DefaultOutput,
		"verbose":          false,
		"cache.size":       DefaultCacheSize,
		"log.level":        DefaultLogLevel,
		"log.format":       DefaultLogFormat,
		"flush.batch_size": DefaultBatchSize,
	}
}
