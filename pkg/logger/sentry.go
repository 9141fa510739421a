package logger

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `config:"SENTRY_DSN"`
	Environment string `config:"SENTRY_ENVIRONMENT"`
	Release     string `config:"SENTRY_RELEASE"`
	// MinLevel is the lowest level stored as a Sentry log.
	// Errors always become Sentry events.
	MinLevel slog.Level
	// Options configures the local handler.
	Options Options
}

// NewWithSentry creates a logger that writes locally and to Sentry.
// Without a DSN, or when the SDK fails to start, only the local handler is used.
func NewWithSentry(cfg SentryConfig, extractors ...ContextExtractor) *slog.Logger {
	local := newHandler(cfg.Options)

	if cfg.DSN == "" {
		return slog.New(NewLogHandlerDecorator(local, extractors...))
	}

	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(local).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(NewLogHandlerDecorator(local, extractors...))
	}

	var logLevels []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= cfg.MinLevel {
			logLevels = append(logLevels, l)
		}
	}

	remote := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevels,
	}.NewSentryHandler(context.Background())

	return slog.New(NewLogHandlerDecorator(fanout{local, remote}, extractors...))
}
