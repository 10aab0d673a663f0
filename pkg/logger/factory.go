package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// File path for the rotating application log. Empty = stdout only.
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// New creates a JSON-formatted, level-filtered logger.
// Log records are written to stdout and, when cfg.File is set, appended to a
// size-rotated file. When cfg.SentryDSN is set, warnings and errors are also
// forwarded to Sentry. Context extractors inject request-scoped attributes
// (request ID, client IP) into every record.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	handlers := []slog.Handler{slog.NewJSONHandler(os.Stdout, opts)}

	if cfg.File != "" {
		// lumberjack handles size-based rotation and old-file cleanup.
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotated, opts))
	}

	if h := sentryHandler(cfg); h != nil {
		handlers = append(handlers, h)
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = newMultiHandler(handlers...)
	}

	return slog.New(NewLogHandlerDecorator(handler, extractors...))
}

// NewDiscard creates a no-op logger that drops all output.
// Use as a default when logging is not configured, and in tests.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sentryHandler initializes the Sentry SDK and returns a handler for it.
// Returns nil when no DSN is configured or initialization fails, so the
// caller degrades to local logging only.
func sentryHandler(cfg Config) slog.Handler {
	if cfg.SentryDSN == "" {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.Default().Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return nil
	}

	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
