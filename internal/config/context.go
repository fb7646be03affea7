package config

import (
	"context"
	"log/slog"
)

type configKey struct{}

type loggerKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Loaded) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the configuration stored in ctx. Without one it
// returns the defaults.
func FromContext(ctx context.Context) *Loaded {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*Loaded); ok {
			return cfg
		}
	}
	return &Loaded{Config: &Config{
		Dialect: DefaultDialect,
		Output:  DefaultOutput,
		Cache:   CacheConfig{Size: DefaultCacheSize},
		Log:     LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Flush:   FlushConfig{BatchSize: DefaultBatchSize},
	}}
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger stored in ctx, or a logger that discards
// everything.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.New(slog.DiscardHandler)
}
