// Package logging builds the slog loggers used by the server and the monitor.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns the server logger on stdout. See NewWriter.
func New(level string, dev bool) *slog.Logger {
	return NewWriter(os.Stdout, level, dev)
}

// NewWriter returns a logger on w at level, falling back to info when level
// does not parse. Development output is text with source locations,
// everything else JSON.
func NewWriter(w io.Writer, level string, dev bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	if dev {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: true}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
