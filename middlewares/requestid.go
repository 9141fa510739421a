package middlewares

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/pkg/logger"
)

// RequestIDKey is the name of the request id in g.
const RequestIDKey = "request_id"

// DefaultRequestIDHeaders are the headers checked (in order) for an existing request ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDConfig configures the request ID extension.
type RequestIDConfig struct {
	Generator      func() string // ID generator function
	ResponseHeader string        // Response header name
	Headers        []string      // Headers to check for existing ID (in order)
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders sets the headers to check for existing request IDs.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

// WithRequestIDResponseHeader sets the response header name. An empty
// name disables the header.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

// RequestID returns an extension that assigns an id to each request.
// The id is taken from the first configured request header that carries
// one, or generated (UUIDv7 by default).
func RequestID(opts ...RequestIDOption) internal.Extension {
	cfg := &RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      newRequestID,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.ExtensionFunc(func(app *internal.App) error {
		app.Extensions().Set("request_id", cfg)

		app.BeforeRequest(func(c internal.Context) (any, error) {
			// upstream ids win so traces stay connected
			var reqID string
			for _, header := range cfg.Headers {
				if v := c.Header(header); v != "" {
					reqID = v
					break
				}
			}
			if reqID == "" {
				reqID = cfg.Generator()
			}
			c.G().Set(RequestIDKey, reqID)
			return nil, nil
		})

		app.AfterRequest(func(c internal.Context, resp *internal.Response) (*internal.Response, error) {
			if cfg.ResponseHeader == "" {
				return resp, nil
			}
			if id := GetRequestID(c); id != "" {
				resp.Header.Set(cfg.ResponseHeader, id)
			}
			return resp, nil
		})
		return nil
	})
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// GetRequestID returns the request id of the active request, or "".
func GetRequestID(ctx context.Context) string {
	g, err := internal.G(ctx)
	if err != nil {
		return ""
	}
	v, _ := g.Lookup(RequestIDKey)
	id, _ := v.(string)
	return id
}

// RequestIDExtractor returns a ContextExtractor for use with WithLogger.
// Automatically adds "request_id" to all log entries.
func RequestIDExtractor() logger.ContextExtractor {
	return internal.LogExtractor("request_id", internal.NewExtractor(internal.FromGlobal(RequestIDKey)))
}
