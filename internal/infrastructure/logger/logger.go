// Package logger builds the zerolog loggers used by the CLI and the server.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level  string // trace, debug, info, warn, error, disabled
	Format string // json, console
	// Output defaults to stderr so that ledger output on stdout stays clean.
	Output io.Writer
}

// New creates a logger writing to cfg.Output. Debug and trace loggers also
// record the caller.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stderr}
	}

	level := parseLevel(cfg.Level)
	logCtx := zerolog.New(out).Level(level).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logCtx = logCtx.Caller()
	}

	return logCtx.Logger()
}

// parseLevel accepts zerolog level names in any case. Unknown or empty
// names fall back to info.
func parseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return level
}
