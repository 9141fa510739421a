package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Options configures NewWithOptions.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	// Format defaults to FormatJSON.
	Format Format
	// Level defaults to slog.LevelInfo.
	Level slog.Leveler
	// AddSource records the caller position.
	AddSource bool
}

// New creates a JSON logger on stdout at info level.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithOptions(Options{}, extractors...)
}

// NewWithOptions creates a logger from opts.
func NewWithOptions(opts Options, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(newHandler(opts), extractors...))
}

// NewNope creates a no-op logger that discards all output.
// Use this as a default when logging is not configured.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else yields slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func newHandler(opts Options) slog.Handler {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	ho := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}
	if opts.Format == FormatText {
		return slog.NewTextHandler(out, ho)
	}
	return slog.NewJSONHandler(out, ho)
}

// NewText creates a human-readable logger at debug level, used in debug mode.
func NewText(extractors ...ContextExtractor) *slog.Logger {
	return NewWithOptions(Options{Format: FormatText, Level: slog.LevelDebug}, extractors...)
}
