// Package common provides shared utilities for the installer binaries,
// primarily structured logger construction.
package common

import (
	"log/slog"
	"os"
)

// Version is the installer version, set at build time via ldflags.
var Version = "dev"

// LoggingOpts configures logger construction.
type LoggingOpts struct {
	// Debug enables debug-level logging.
	Debug bool

	// JSON switches output from text to JSON format.
	JSON bool

	// Service is added as a "service" attribute to all log lines.
	Service string

	// Version is added as a "version" attribute to all log lines.
	Version string
}

// SetupLogger creates a slog logger writing to stderr according to opts.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}
	return logger
}
