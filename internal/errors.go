package internal

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dmitrymomot/flagon/pkg/session"
)

// Sentinel errors of the framework core.
var (
	ErrOutsideAppContext     = errors.New("working outside of application context: push an AppContext (app.AppContext().Push) or run inside a request")
	ErrOutsideRequestContext = errors.New("working outside of request context: this needs an active HTTP request, use app.TestRequestContext in tests")
	ErrContextMismatch       = errors.New("popped wrong context")
	ErrContextNotPushed      = errors.New("context was not pushed")
	ErrGlobalNotFound        = errors.New("global not found")
	ErrGlobalType            = errors.New("global has a different type")
	ErrSetupFinished         = errors.New("setup method called after the first request")
	ErrBlueprintRegistered   = errors.New("setup method called after the blueprint was registered")
	ErrEmptyEndpoint         = errors.New("endpoint is required when it cannot be derived from the view")
	ErrEndpointOverwrite     = errors.New("view function mapping is overwriting an existing endpoint function")
	ErrInvalidEndpoint       = errors.New("blueprint endpoints and view names may not contain a dot")
	ErrBlueprintName         = errors.New("invalid blueprint name")
	ErrInvalidErrorKey       = errors.New("invalid error handler key")
	ErrNoViewFunction        = errors.New("no view function for endpoint")
	ErrInvalidResponse       = errors.New("view did not return a valid response")
	ErrNullSession           = session.ErrNull
	ErrSchemeWithoutExternal = errors.New("a URL scheme requires an external URL")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrNoTemplates           = errors.New("no template loader configured")
	ErrMissingKey            = errors.New("missing form key")
)

// HTTPError represents an HTTP error with all data needed for rendering.
// It implements the error interface and provides structured data for
// error handlers to render error pages.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Headers are added to the rendered response.
	Headers http.Header

	// Message is the user-facing error message.
	Message string

	// Title is an optional title for the error (defaults derived from Code).
	Title string

	// Detail is an optional extended description.
	Detail string

	// ErrorCode is an application-specific error code.
	ErrorCode string

	// RequestID is the request tracking ID.
	RequestID string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	if e.Title != "" {
		return e.Title
	}
	return http.StatusText(e.Code)
}

// Header returns the extra response headers.
func (e *HTTPError) Header() http.Header {
	return e.Headers
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithTitle(title string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Title = title
	}
}

func WithDetail(detail string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Detail = detail
	}
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.ErrorCode = code
	}
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.RequestID = id
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// WithHeader adds a response header to the rendered error.
func WithHeader(key, value string) HTTPErrorOption {
	return func(e *HTTPError) {
		if e.Headers == nil {
			e.Headers = make(http.Header)
		}
		e.Headers.Add(key, value)
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, message, opts...)
}

func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusConflict, message, opts...)
}

func ErrRequestEntityTooLarge(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, message, opts...)
}

func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

// statusCoder is implemented by every HTTP-level error, including the
// routing errors of pkg/routing.
type statusCoder interface {
	StatusCode() int
}

type headerer interface {
	Header() http.Header
}

// StatusOf returns the status code of the first HTTP-level error in the
// chain of err.
func StatusOf(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// IsHTTPError reports whether err carries an HTTP status code.
func IsHTTPError(err error) bool {
	_, ok := StatusOf(err)
	return ok
}

// AsHTTPError extracts the HTTPError from an error if present.
// Returns nil if the error is not an HTTPError.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// SetupError reports a registration that is no longer allowed or is
// invalid. Setup methods panic with it.
type SetupError struct {
	Err       error
	Method    string
	Blueprint string
}

func (e *SetupError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSetupFinished):
		return fmt.Sprintf("the setup method %q can no longer be called on the application: "+
			"it has already handled its first request, any changes will not be applied consistently", e.Method)
	case errors.Is(e.Err, ErrBlueprintRegistered):
		return fmt.Sprintf("the setup method %q can no longer be called on the blueprint %q: "+
			"it has already been registered, any changes will not be applied consistently", e.Method, e.Blueprint)
	}
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking view or hook.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	if pe, ok := v.(*PanicError); ok {
		return pe
	}
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is and errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FormDataRoutingRedirect is raised in debug mode instead of a redirect
// that would make the browser drop the request body.
type FormDataRoutingRedirect struct {
	Method string
	URL    string
	NewURL string
	Code   int
}

func (e *FormDataRoutingRedirect) Error() string {
	msg := fmt.Sprintf("a request was sent to %q but routing issued a redirect to %q", e.URL, e.NewURL)
	if e.Code != http.StatusTemporaryRedirect && e.Code != http.StatusPermanentRedirect {
		msg += "; the URL was defined with a trailing slash, the client was redirected and the " +
			e.Method + " body will not be resent. Make sure to send requests to the canonical URL"
	}
	return msg
}
