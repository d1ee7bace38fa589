package config

import (
	"log/slog"
	"strings"
)

// ParseLogLevel maps a --loglevel flag value to a slog level. Unknown values
// fall back to info.
func ParseLogLevel(raw string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return slog.LevelDebug
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
