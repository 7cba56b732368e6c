package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Redacted replaces the value of any attribute whose key is in Config.Redact.
const Redacted = "[REDACTED]"

// DefaultRedact lists keys that carry credentials in this service.
var DefaultRedact = []string{"password", "access_token", "refresh_token", "authorization", "code", "secret"}

type Config struct {
	Service string
	Version string
	Env     string // "dev", "test" or "prod"
	Level   string // "debug", "info", "warn" or "error"
	Format  string // "json" or "text"

	// Redact defaults to DefaultRedact. Keys are compared case-insensitively.
	Redact []string

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds the process logger and installs it as the slog default.
func New(cfg Config) *slog.Logger {
	redact := cfg.Redact
	if redact == nil {
		redact = DefaultRedact
	}
	secret := make(map[string]struct{}, len(redact))
	for _, k := range redact {
		secret[strings.ToLower(k)] = struct{}{}
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     ParseLevel(cfg.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if _, ok := secret[strings.ToLower(a.Key)]; ok {
				return slog.String(a.Key, Redacted)
			}
			return a
		},
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger
}

// ParseLevel accepts slog level names plus "warning". Anything else is info.
func ParseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
