// Package log is the logging layer shared by the httpcam daemon and the
// watcher. It wraps slog with one process-wide level and writes to
// stderr; the watcher owns stdout for its live stats line.
package log

import (
	"log/slog"
	"os"
)

// level is shared by every logger this package hands out, so a late
// Init still retunes loggers other packages already captured.
var level = new(slog.LevelVar)

var logger = slog.New(newHandler())

func init() {
	slog.SetDefault(logger)
}

// newHandler picks the output format. HTTPCAM_LOG=json switches to
// JSON lines for log shippers; the default is human-readable text.
func newHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("HTTPCAM_LOG") == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// Init sets the process log level. Unknown names mean info; the config
// layer rejects them before startup gets this far.
func Init(name string) {
	if lvl, ok := ParseLevel(name); ok {
		level.Set(lvl)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// ParseLevel maps a level name from a flag or config file to its slog
// level. The second return is false for names Init does not accept.
func ParseLevel(name string) (slog.Level, bool) {
	switch name {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// L returns the package logger.
func L() *slog.Logger {
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}
