package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var logger *slog.Logger

// Init initializes the process logger with a specific level, writing to stderr.
func Init(level slog.Level) {
	InitWithWriter(os.Stderr, level)
}

// InitWithWriter initializes the process logger on w.
func InitWithWriter(w io.Writer, level slog.Level) {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	logger = slog.New(slog.NewTextHandler(w, opts))
}

// L returns the process logger. It returns an info-level logger if Init has not been called.
func L() *slog.Logger {
	if logger == nil {
		Init(slog.LevelInfo)
	}
	return logger
}

// LevelFromString converts a string to a slog.Level.
func LevelFromString(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
