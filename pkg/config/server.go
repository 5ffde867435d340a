package config

import (
	"io"
	"log/slog"
	"strings"
)

// PrefixConfig holds the mount point of the API routes.
//
//	API_PREFIX=/api  ->  POST /api/auth/login
type PrefixConfig struct {
	API string `env:"API_PREFIX" env-default:"/api"`
}

// AuthPrefix returns the mount point of the auth routes
func (p PrefixConfig) AuthPrefix() string {
	return strings.TrimRight(p.API, "/") + "/auth"
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" env-default:"true"`
	Path    string `env:"METRICS_PATH" env-default:"/metrics"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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

// NewLogger builds the process logger
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
