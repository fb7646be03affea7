package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the slog logger described by c, writing to w. An
// invalid level falls back to warn.
func NewLogger(w io.Writer, c LogConfig) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
