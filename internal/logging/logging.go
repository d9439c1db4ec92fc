// Package logging builds the slog loggers used across apiflow.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Options selects where and how log records are written.
type Options struct {
	Level  string
	Format string // "text" or "json"
	File   string // empty writes to Fallback
	// Fallback receives records when File is empty. Nil discards them.
	Fallback io.Writer
}

// Logger is a configured logger and the function releasing its output.
type Logger struct {
	*slog.Logger
	Close func() error
	Path  string
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	level, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New opens the configured output and returns a logger writing to it.
func New(opts Options) (Logger, error) {
	nop := Logger{Logger: Nop(), Close: func() error { return nil }}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nop, err
	}

	out := opts.Fallback
	closeFn := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nop, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nop, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}
	if out == nil {
		return nop, nil
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	case "", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		_ = closeFn()
		return nop, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return Logger{Logger: slog.New(handler), Close: closeFn, Path: opts.File}, nil
}
