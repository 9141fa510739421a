package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/flagon/internal"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures the timeout extension.
type TimeoutConfig struct {
	Timeout time.Duration
	Message string
}

// TimeoutOption configures TimeoutConfig.
type TimeoutOption func(*TimeoutConfig)

// WithTimeoutMessage sets the message of the 503 response.
func WithTimeoutMessage(msg string) TimeoutOption {
	return func(cfg *TimeoutConfig) {
		cfg.Message = msg
	}
}

// Timeout returns an extension that bounds every request by a deadline.
// Views see it on their context; one that returns an error matching
// context.DeadlineExceeded gets a 503 response wrapping a TimeoutError.
//
// The view is not interrupted: long-running work has to watch ctx.Done().
func Timeout(timeout time.Duration, opts ...TimeoutOption) internal.Extension {
	cfg := &TimeoutConfig{Timeout: timeout}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return internal.ExtensionFunc(func(app *internal.App) error {
		app.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
				defer cancel()
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})

		app.ErrorHandler(context.DeadlineExceeded, func(c internal.Context, err error) (any, error) {
			te, ok := AsTimeoutError(err)
			if !ok {
				te = &TimeoutError{Duration: cfg.Timeout}
			}
			c.Logger().WarnContext(c, "request timeout",
				slog.String("timeout", te.Duration.String()),
				slog.Any("error", err),
			)
			msg := cfg.Message
			if msg == "" {
				msg = te.Error()
			}
			return internal.ErrServiceUnavailable(msg, internal.WithError(errors.Join(te, err))), nil
		})
		return nil
	})
}
