package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger logs text to stderr and, when logFile is set, JSON lines to
// that file. The returned func closes the file. A file that cannot be
// opened degrades to stderr only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	noop := func() error { return nil }
	if logFile == "" {
		return newLogger(os.Stderr, nil, level), noop
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		slog.Error("failed to create log directory, using stderr only", "error", err, "file", logFile)
		return newLogger(os.Stderr, nil, level), noop
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return newLogger(os.Stderr, nil, level), noop
	}
	return newLogger(os.Stderr, file, level), file.Close
}

// newLogger fans records out to a text handler on console and, if file is
// non-nil, a JSON handler on file.
func newLogger(console, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	text := slog.NewTextHandler(console, opts)
	if file == nil {
		return slog.New(text)
	}
	return slog.New(slogmulti.Fanout(text, slog.NewJSONHandler(file, opts)))
}
