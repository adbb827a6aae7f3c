// Package logging builds the ticksched diagnostic logger. Diagnostics go to stderr
// so that stdout carries only the scheduler trace.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"tickq/internal/sched"
)

// FromConfig returns the logger described by cfg.LogLevel and cfg.LogFormat,
// writing to stderr. Every record carries runID so log lines can be matched with
// the rows of a CSV trace.
func FromConfig(cfg sched.Config, runID string) *slog.Logger {
	return FromConfigWriter(cfg, runID, os.Stderr)
}

// FromConfigWriter is FromConfig with an explicit destination.
func FromConfigWriter(cfg sched.Config, runID string, w io.Writer) *slog.Logger {
	l := slog.New(newHandler(w, ParseLevel(cfg.LogLevel), cfg.LogFormat))
	if runID != "" {
		l = l.With("run_id", runID)
	}
	return l
}

// newHandler picks JSON for "json" and text for anything else. Debug output
// includes the source position of each record.
func newHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a config level name to a slog.Level; unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
