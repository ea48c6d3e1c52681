package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger is the global slog logger instance. It falls back to slog.Default until Init runs.
	Logger = slog.Default()
)

// ParseLevel maps a LOG_LEVEL value onto a slog level, defaulting to info
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

// Init initializes the global logger from the LOG_LEVEL environment variable
func Init() {
	InitLevel(os.Getenv("LOG_LEVEL"))
}

// InitLevel initializes the global JSON logger on stdout at the given level
func InitLevel(level string) {
	InitWriter(os.Stdout, level)
}

// InitWriter initializes the global JSON logger writing to w
func InitWriter(w io.Writer, level string) {
	if level == "" {
		level = "info"
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	Logger = slog.New(slog.NewJSONHandler(w, opts))
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized", "level", level)
}

// With returns a child logger carrying the given attributes
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
