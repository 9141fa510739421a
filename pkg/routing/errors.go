package routing

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Sentinel errors for map configuration.
var (
	// ErrInvalidRule is returned when a rule cannot be added to the map.
	ErrInvalidRule = errors.New("routing: invalid rule")

	// ErrNoServerName is returned when an adapter is needed outside a
	// request and the map has no server name to build one.
	ErrNoServerName = errors.New("routing: no server name")
)

// RequestRedirect is returned by Match when the request should be
// redirected, usually to the slash-terminated form of the path.
type RequestRedirect struct {
	NewURL string
	Code   int
}

func (e *RequestRedirect) Error() string {
	return fmt.Sprintf("routing: redirect to %s", e.NewURL)
}

func (e *RequestRedirect) StatusCode() int {
	return e.Code
}

// Header returns the Location header for the redirect.
func (e *RequestRedirect) Header() http.Header {
	return http.Header{"Location": []string{e.NewURL}}
}

// NotFound is returned by Match when no rule matches the path.
type NotFound struct {
	Path string
}

func (e *NotFound) Error() string {
	return "routing: not found: " + e.Path
}

func (e *NotFound) StatusCode() int {
	return http.StatusNotFound
}

// MethodNotAllowed is returned by Match when the path matches rules for
// other methods only.
type MethodNotAllowed struct {
	Method  string
	Allowed []string
}

func (e *MethodNotAllowed) Error() string {
	return fmt.Sprintf("routing: method %s not allowed (allowed: %s)", e.Method, strings.Join(e.Allowed, ", "))
}

func (e *MethodNotAllowed) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// Header returns the Allow header listing the valid methods.
func (e *MethodNotAllowed) Header() http.Header {
	return http.Header{"Allow": []string{strings.Join(e.Allowed, ", ")}}
}

// BuildError is returned when no rule can build a URL for the endpoint
// with the given values.
type BuildError struct {
	Values   map[string]any
	Endpoint string
	Method   string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("routing: could not build url for endpoint %q", e.Endpoint)
	if e.Method != "" {
		msg += fmt.Sprintf(" (%s)", e.Method)
	}
	if len(e.Values) > 0 {
		msg += fmt.Sprintf(" with values %v", slices.Sorted(maps.Keys(e.Values)))
	}
	return msg
}
