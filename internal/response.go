package internal

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// DefaultMimetype is the content type of responses built from strings.
const DefaultMimetype = "text/html; charset=utf-8"

// Response is the canonical value a view's return is coerced into.
// Body and stream are exclusive: streamed responses have no buffered body.
type Response struct {
	// Header holds the response headers.
	Header http.Header

	// Status is the raw status line when one was given as a string,
	// for example "418 I'm a teapot". net/http always writes the
	// standard reason phrase.
	Status string

	// StatusCode is the HTTP status code.
	StatusCode int

	body   []byte
	stream func(w io.Writer) error
}

// NewResponse creates a buffered response. An empty contentType means
// DefaultMimetype.
func NewResponse(body []byte, status int, contentType string) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	if contentType == "" {
		contentType = DefaultMimetype
	}
	r := &Response{Header: make(http.Header), StatusCode: status, body: body}
	r.Header.Set("Content-Type", contentType)
	return r
}

// NewStreamResponse creates a response whose body is produced by fn while
// it is written.
func NewStreamResponse(fn func(w io.Writer) error, status int, contentType string) *Response {
	r := NewResponse(nil, status, contentType)
	r.stream = fn
	return r
}

// Redirect creates a redirect response with a short HTML body.
// code defaults to 302 Found.
func Redirect(location string, code ...int) *Response {
	status := http.StatusFound
	if len(code) > 0 && code[0] != 0 {
		status = code[0]
	}
	escaped := html.EscapeString(location)
	body := fmt.Sprintf("<!doctype html>\n<html lang=en>\n<title>Redirecting...</title>\n"+
		"<h1>Redirecting...</h1>\n<p>You should be redirected automatically to the target URL: "+
		"<a href=\"%s\">%s</a>. If not, click the link.\n", escaped, escaped)
	r := NewResponse([]byte(body), status, "")
	r.Header.Set("Location", location)
	return r
}

// Body returns the buffered body. Streamed responses return nil.
func (r *Response) Body() []byte {
	return r.body
}

// SetBody replaces the body and drops any stream.
func (r *Response) SetBody(b []byte) {
	r.body = b
	r.stream = nil
}

// IsStreamed reports whether the body is produced while writing.
func (r *Response) IsStreamed() bool {
	return r.stream != nil
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// SetStatus applies a status given as an int code or as a status line
// string such as "201 CREATED".
func (r *Response) SetStatus(status any) error {
	switch s := status.(type) {
	case int:
		r.StatusCode = s
		r.Status = ""
	case string:
		code, _, _ := strings.Cut(strings.TrimSpace(s), " ")
		n, err := strconv.Atoi(code)
		if err != nil {
			return fmt.Errorf("%w: status %q has no numeric code", ErrInvalidResponse, s)
		}
		r.StatusCode = n
		r.Status = s
	default:
		return fmt.Errorf("%w: status must be int or string, got %T", ErrInvalidResponse, status)
	}
	return nil
}

// StatusLine returns the status line that describes the response.
func (r *Response) StatusLine() string {
	if r.Status != "" {
		return r.Status
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// SetCookie adds a Set-Cookie header.
func (r *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		r.Header.Add("Set-Cookie", v)
	}
}

// DeleteCookie adds a Set-Cookie header that expires the cookie.
func (r *Response) DeleteCookie(c *http.Cookie) {
	expired := *c
	expired.Value = ""
	expired.MaxAge = -1
	r.SetCookie(&expired)
}

// AddVary adds values to the Vary header once.
func (r *Response) AddVary(values ...string) {
	current := r.Header.Values("Vary")
	for _, v := range values {
		if !slices.ContainsFunc(current, func(c string) bool { return strings.EqualFold(c, v) }) {
			r.Header.Add("Vary", v)
			current = append(current, v)
		}
	}
}

// write sends the response. HEAD requests get headers only.
func (r *Response) write(w http.ResponseWriter, method string) error {
	dst := w.Header()
	for k, vs := range r.Header {
		if k == "Set-Cookie" || k == "Vary" {
			dst[k] = append(dst[k], vs...)
			continue
		}
		dst[k] = slices.Clone(vs)
	}
	if r.stream == nil && dst.Get("Content-Length") == "" {
		dst.Set("Content-Length", strconv.Itoa(len(r.body)))
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if method == http.MethodHead || !bodyAllowed(status) {
		return nil
	}
	if r.stream != nil {
		return r.stream(w)
	}
	_, err := io.Copy(w, bytes.NewReader(r.body))
	return err
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// errorPage renders the default HTML page of an HTTP error.
func errorPage(code int, title, message string) []byte {
	if title == "" {
		title = http.StatusText(code)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!doctype html>\n<html lang=en>\n<title>%d %s</title>\n<h1>%s</h1>\n",
		code, html.EscapeString(title), html.EscapeString(title))
	if message != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(message))
	}
	return []byte(b.String())
}
