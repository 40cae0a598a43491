package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Init configures the process-wide logger. level is one of debug, info,
// warn, error (case-insensitive); json selects JSON output instead of text.
func Init(level string, json bool, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	mu.Lock()
	logger = slog.New(handler)
	mu.Unlock()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func log(level slog.Level, subsystem string, err error, format string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	attrs := []any{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, args...), attrs...)
}

// Debug logs a debug message for the given subsystem.
func Debug(subsystem, format string, args ...interface{}) {
	log(slog.LevelDebug, subsystem, nil, format, args...)
}

// Info logs an informational message for the given subsystem.
func Info(subsystem, format string, args ...interface{}) {
	log(slog.LevelInfo, subsystem, nil, format, args...)
}

// Warn logs a warning for the given subsystem.
func Warn(subsystem, format string, args ...interface{}) {
	log(slog.LevelWarn, subsystem, nil, format, args...)
}

// Error logs an error for the given subsystem.
func Error(subsystem string, err error, format string, args ...interface{}) {
	log(slog.LevelError, subsystem, err, format, args...)
}
