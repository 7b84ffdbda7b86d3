package app

import (
	"io"
	"log/slog"
	"strings"
)

// parseLevel maps a level name to a slog level. Unknown names mean info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// newLogger builds an isolated logger writing to w; it never touches the
// global default. Debug output carries source positions.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	level := parseLevel(levelStr)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler).With("component", "lineagegrid")
}
