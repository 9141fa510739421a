package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/pkg/metrics"
)

// MetricsConfig configures the Metrics extension.
type MetricsConfig struct {
	Path     string
	Recorder *metrics.Recorder
	Options  []metrics.Option
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithMetricsPath sets the scrape endpoint. An empty path disables it.
// Defaults to "/metrics".
func WithMetricsPath(path string) MetricsOption {
	return func(cfg *MetricsConfig) {
		cfg.Path = path
	}
}

// WithMetricsRecorder uses rec instead of creating a recorder.
func WithMetricsRecorder(rec *metrics.Recorder) MetricsOption {
	return func(cfg *MetricsConfig) {
		cfg.Recorder = rec
	}
}

// WithMetricsOptions passes options to metrics.New.
func WithMetricsOptions(opts ...metrics.Option) MetricsOption {
	return func(cfg *MetricsConfig) {
		cfg.Options = append(cfg.Options, opts...)
	}
}

// Metrics returns an extension that records Prometheus request metrics
// from the request signals and serves them on a scrape endpoint. The
// recorder is stored as the "metrics" extension state.
//
// Example:
//
//	app := flagon.New(flagon.WithExtensions(middlewares.Metrics(
//	    middlewares.WithMetricsOptions(metrics.WithNamespace("shop")),
//	)))
//	rec, _ := flagon.ExtensionState[*metrics.Recorder](app, "metrics")
func Metrics(opts ...MetricsOption) internal.Extension {
	cfg := &MetricsConfig{Path: "/metrics"}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.ExtensionFunc(func(app *internal.App) error {
		rec := cfg.Recorder
		if rec == nil {
			var err error
			if rec, err = metrics.New(cfg.Options...); err != nil {
				return err
			}
		}
		app.Extensions().Set("metrics", rec)

		app.Signals().RequestStarted.Connect(func(context.Context, any, *internal.RequestContext) {
			rec.Started()
		})
		app.Signals().GotRequestException.Connect(func(ctx context.Context, _ any, err error) {
			endpoint := ""
			if rc, rerr := internal.CurrentRequestContext(ctx); rerr == nil {
				endpoint = rc.Endpoint()
			}
			rec.Exception(endpoint, fmt.Sprintf("%T", err))
		})
		app.TeardownRequest(func(c internal.Context, _ error) {
			rc, rerr := internal.CurrentRequestContext(c)
			if rerr != nil {
				return
			}
			status := http.StatusInternalServerError
			if w := rc.ResponseWriter(); w.Written() {
				status = w.Status()
			}
			rec.Finished(rc.Request().Method, rc.Endpoint(), status, time.Since(rc.StartedAt()))
		})

		if cfg.Path != "" {
			h := rec.Handler()
			app.AddURLRule(cfg.Path, "metrics", func(internal.Context) (any, error) {
				return h, nil
			})
		}
		return nil
	})
}
