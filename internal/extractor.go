package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/flagon/pkg/logger"
)

// ExtractorSource extracts a value from the request context.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(Context) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
// Returns ("", false) if all sources miss.
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func nonEmpty(v string) (string, bool) {
	return v, v != ""
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Header(name))
	}
}

// FromQuery returns a source that reads from a query parameter.
func FromQuery(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Query(name))
	}
}

// FromCookie returns a source that reads from a plain cookie.
func FromCookie(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		ck, err := c.Request().Cookie(name)
		if err != nil {
			return "", false
		}
		return nonEmpty(ck.Value)
	}
}

// FromParam returns a source that reads from a view argument.
func FromParam(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Param(name))
	}
}

// FromForm returns a source that reads from a form field.
func FromForm(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Form(name))
	}
}

// FromSession returns a source that reads from a session value.
// Non-string values are formatted with fmt.Sprint.
func FromSession(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		val, ok := c.Session().Get(key)
		if !ok || val == nil {
			return "", false
		}
		if s, ok := val.(string); ok {
			return nonEmpty(s)
		}
		return nonEmpty(fmt.Sprint(val))
	}
}

// FromGlobal returns a source that reads from the g namespace.
func FromGlobal(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		val, ok := c.G().Lookup(key)
		if !ok || val == nil {
			return "", false
		}
		if s, ok := val.(string); ok {
			return nonEmpty(s)
		}
		return nonEmpty(fmt.Sprint(val))
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(c Context) (string, bool) {
		auth := c.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return nonEmpty(strings.TrimSpace(auth[7:]))
	}
}

// LogExtractor adds the value found by e to log entries written inside a
// request.
//
// Example:
//
//	flagon.WithLogger("api",
//	    flagon.LogExtractor("request_id", flagon.NewExtractor(flagon.FromGlobal("request_id"))),
//	)
func LogExtractor(key string, e Extractor) logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		rc, err := requestContextOf(ctx)
		if err != nil {
			return slog.Attr{}, false
		}
		v, ok := e.Extract(rc)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String(key, v), true
	}
}

// EndpointExtractor adds the matched endpoint to log entries.
func EndpointExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		rc, err := requestContextOf(ctx)
		if err != nil {
			return slog.Attr{}, false
		}
		ep := rc.request.Endpoint()
		if ep == "" {
			return slog.Attr{}, false
		}
		return slog.String("endpoint", ep), true
	}
}
