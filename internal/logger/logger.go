// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the default logger based on environment variables.
// Priority: WETWIRE_LOG_LEVEL > LOG_LEVEL > "warn".
// WETWIRE_LOG_FORMAT: text, json (default: text).
func Init() {
	InitWith(os.Stderr, os.Getenv)
}

// InitWith is Init with an explicit writer and environment lookup.
func InitWith(w io.Writer, getenv func(string) string) *slog.Logger {
	levelStr := getenv("WETWIRE_LOG_LEVEL")
	if levelStr == "" {
		levelStr = getenv("LOG_LEVEL")
	}

	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}

	var handler slog.Handler
	if strings.ToLower(getenv("WETWIRE_LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// SetVerbose lowers the level to debug, for --verbose.
func SetVerbose(w io.Writer) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}
