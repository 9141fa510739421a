// Package metrics records request metrics in Prometheus collectors.
//
// A [Recorder] is transport-agnostic: callers report observations and
// expose [Recorder.Handler] on a scrape endpoint.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "flagon"

// Recorder exports request metrics.
type Recorder struct {
	gatherer   prometheus.Gatherer
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	exceptions *prometheus.CounterVec
	inFlight   prometheus.Gauge
}

type options struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	namespace  string
	buckets    []float64
}

// Option configures a Recorder.
type Option func(*options)

// WithNamespace sets the metric namespace. Default: "flagon".
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithRegistry registers collectors on reg and serves them from Handler.
// Default: prometheus.DefaultRegisterer and DefaultGatherer.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.registerer = reg
			o.gatherer = reg
		}
	}
}

// WithBuckets sets the duration histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) {
		if len(b) > 0 {
			o.buckets = b
		}
	}
}

// New creates a Recorder and registers its collectors. Collectors that are
// already registered with the same descriptors are reused.
func New(opts ...Option) (*Recorder, error) {
	o := options{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		namespace:  defaultNamespace,
		buckets:    prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Recorder{gatherer: o.gatherer}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Name:      "requests_total",
		Help:      "Requests handled, by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: o.namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency from dispatch start to response.",
		Buckets:   o.buckets,
	}, []string{"method", "endpoint"})
	exceptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: o.namespace,
		Name:      "exceptions_total",
		Help:      "Unhandled errors reaching the exception handler.",
	}, []string{"endpoint", "type"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: o.namespace,
		Name:      "requests_in_flight",
		Help:      "Requests currently being dispatched.",
	})

	var err error
	if r.requests, err = register(o.registerer, requests); err != nil {
		return nil, err
	}
	if r.duration, err = register(o.registerer, duration); err != nil {
		return nil, err
	}
	if r.exceptions, err = register(o.registerer, exceptions); err != nil {
		return nil, err
	}
	if r.inFlight, err = register(o.registerer, inFlight); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("metrics: register collector: %w", err)
	}
	return c, nil
}

// Started marks a request as in flight.
func (r *Recorder) Started() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// Finished records a completed request. An empty endpoint is reported as
// "<unmatched>".
func (r *Recorder) Finished(method, endpoint string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if endpoint == "" {
		endpoint = "<unmatched>"
	}
	r.inFlight.Dec()
	r.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// Exception records an unhandled error of the given type name.
func (r *Recorder) Exception(endpoint, errType string) {
	if r == nil {
		return
	}
	if endpoint == "" {
		endpoint = "<unmatched>"
	}
	r.exceptions.WithLabelValues(endpoint, errType).Inc()
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
