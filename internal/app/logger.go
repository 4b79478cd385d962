package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger configured from QUORUM_LOG_FORMAT.
// Production deployments use JSON for log shipping; the default text
// handler is easier to read during development.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	if cfg != nil && !cfg.IsProduction() {
		opts.AddSource = true
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
