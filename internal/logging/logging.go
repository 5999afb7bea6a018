// Package logging installs the process-wide go-ethereum logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Setup configures the default logger on stderr.
func Setup(level, format string) {
	log.SetDefault(log.NewLogger(NewHandler(os.Stderr, level, format)))
}

// NewHandler builds a terminal or JSON handler. Unknown levels fall back to
// info.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return log.JSONHandlerWithLevel(w, lvl)
	}
	return log.NewTerminalHandlerWithLevel(w, lvl, false)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "crit":
		return log.LevelCrit
	}
	return slog.LevelInfo
}
