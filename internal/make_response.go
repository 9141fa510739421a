package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"iter"
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

// Tuple is a view result carrying a status and headers next to the body.
// Status is an int code or a status line string such as "201 CREATED".
type Tuple struct {
	Body    any
	Status  any
	Headers http.Header
}

// WithStatus returns body with a status.
//
//	return flagon.WithStatus(map[string]any{"id": id}, http.StatusCreated), nil
func WithStatus(body, status any) Tuple {
	return Tuple{Body: body, Status: status}
}

// WithHeaders returns body with extra headers.
func WithHeaders(body any, headers http.Header) Tuple {
	return Tuple{Body: body, Headers: headers}
}

// WithStatusHeaders returns body with a status and extra headers.
func WithStatusHeaders(body, status any, headers http.Header) Tuple {
	return Tuple{Body: body, Status: status, Headers: headers}
}

// MakeResponse converts the return value of a view or hook into a
// Response:
//   - *Response is returned unchanged;
//   - string, []byte and template.HTML become the body;
//   - iter.Seq[string], iter.Seq[[]byte] and io.Reader are streamed;
//   - maps, slices and arrays are encoded as JSON;
//   - errors with a status code render the error page;
//   - Component values are rendered as HTML;
//   - http.Handler values are called with the current request;
//   - Tuple wraps any of the above with a status and headers.
//
// Headers of a Tuple replace body headers of the same name and keep the
// others.
func (a *App) MakeResponse(ctx context.Context, rv any) (*Response, error) {
	var status any
	var headers http.Header
	switch t := rv.(type) {
	case Tuple:
		rv, status, headers = t.Body, t.Status, t.Headers
	case *Tuple:
		if t != nil {
			rv, status, headers = t.Body, t.Status, t.Headers
		}
	}

	if isNilValue(rv) {
		return nil, fmt.Errorf("%w: the view function either returned nil or ended without a return value", ErrInvalidResponse)
	}

	resp, err := a.coerceResponse(ctx, rv)
	if err != nil {
		return nil, err
	}

	if status != nil {
		if err := resp.SetStatus(status); err != nil {
			return nil, err
		}
	}
	for k, vs := range headers {
		resp.Header[http.CanonicalHeaderKey(k)] = slices.Clone(vs)
	}
	return resp, nil
}

func (a *App) coerceResponse(ctx context.Context, rv any) (*Response, error) {
	switch v := rv.(type) {
	case *Response:
		return v, nil
	case Response:
		return &v, nil
	case string:
		return NewResponse([]byte(v), 0, ""), nil
	case []byte:
		return NewResponse(v, 0, ""), nil
	case template.HTML:
		return NewResponse([]byte(v), 0, ""), nil
	case func(func(string) bool):
		return a.coerceResponse(ctx, iter.Seq[string](v))
	case func(func([]byte) bool):
		return a.coerceResponse(ctx, iter.Seq[[]byte](v))
	case iter.Seq[string]:
		return NewStreamResponse(func(w io.Writer) error {
			for chunk := range v {
				if _, err := io.WriteString(w, chunk); err != nil {
					return err
				}
			}
			return nil
		}, 0, ""), nil
	case iter.Seq[[]byte]:
		return NewStreamResponse(func(w io.Writer) error {
			for chunk := range v {
				if _, err := w.Write(chunk); err != nil {
					return err
				}
			}
			return nil
		}, 0, ""), nil
	case error:
		if _, ok := StatusOf(v); ok {
			return errorResponse(v), nil
		}
		return nil, fmt.Errorf("%w: the view function returned an error value without a status code: %w", ErrInvalidResponse, v)
	case Component:
		var buf bytes.Buffer
		if err := v.Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("render component: %w", err)
		}
		return NewResponse(buf.Bytes(), 0, ""), nil
	case http.Handler:
		return handlerResponse(ctx, v)
	case func(http.ResponseWriter, *http.Request):
		return handlerResponse(ctx, http.HandlerFunc(v))
	case io.Reader:
		return NewStreamResponse(func(w io.Writer) error {
			if c, ok := v.(io.Closer); ok {
				defer c.Close()
			}
			_, err := io.Copy(w, v)
			return err
		}, 0, ""), nil
	}

	switch reflect.TypeOf(rv).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return a.jsonProvider.Response(ctx, rv)
	}

	return nil, fmt.Errorf("%w: the return type must be a string, []byte, map, slice, Tuple, *Response, "+
		"Component or http.Handler, but it was a %T", ErrInvalidResponse, rv)
}

// handlerResponse runs h against the current request and captures what it
// writes.
func handlerResponse(ctx context.Context, h http.Handler) (*Response, error) {
	rc, err := CurrentRequestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: an http.Handler result needs a request: %w", ErrInvalidResponse, err)
	}
	bw := newBufferedWriter()
	h.ServeHTTP(bw, rc.request.Request)
	return bw.response(), nil
}

// errorResponse renders an HTTP-level error.
func errorResponse(err error) *Response {
	var redirect *routing.RequestRedirect
	if errors.As(err, &redirect) {
		return Redirect(redirect.NewURL, redirect.Code)
	}

	code, _ := StatusOf(err)
	title := http.StatusText(code)
	message := defaultDescription(code)
	if he := AsHTTPError(err); he != nil {
		title = he.StatusText()
		if he.Message != "" {
			message = he.Message
		}
	}

	resp := NewResponse(errorPage(code, title, message), code, "")
	var h headerer
	if errors.As(err, &h) {
		for k, vs := range h.Header() {
			resp.Header[http.CanonicalHeaderKey(k)] = slices.Clone(vs)
		}
	}
	return resp
}

var descriptions = map[int]string{
	http.StatusBadRequest:            "The browser (or proxy) sent a request that this server could not understand.",
	http.StatusUnauthorized:          "The server could not verify that you are authorized to access the URL requested.",
	http.StatusForbidden:             "You don't have the permission to access the requested resource.",
	http.StatusNotFound:              "The requested URL was not found on the server. If you entered the URL manually please check your spelling and try again.",
	http.StatusMethodNotAllowed:      "The method is not allowed for the requested URL.",
	http.StatusRequestEntityTooLarge: "The data value transmitted exceeds the capacity limit.",
	http.StatusInternalServerError:   "The server encountered an internal error and was unable to complete your request. Either the server is overloaded or there is an error in the application.",
	http.StatusServiceUnavailable:    "The server is temporarily unable to service your request. Please try again later.",
}

func defaultDescription(code int) string {
	return descriptions[code]
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// optionsResponse answers an automatic OPTIONS request.
func optionsResponse(allowed []string) *Response {
	resp := NewResponse(nil, http.StatusOK, "")
	resp.Header.Set("Allow", joinMethods(allowed))
	return resp
}

func joinMethods(methods []string) string {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return strings.Join(slices.Sorted(maps.Keys(set)), ", ")
}
