package internal

import (
	"bufio"
	"net"
	"net/http"
	"sync/atomic"
)

// ResponseWriter records the status and body size of what a request sent.
// Dispatch wraps the connection writer with it once, so views that write
// to the connection directly are detected and teardown functions and
// metrics see the final status.
type ResponseWriter struct {
	http.ResponseWriter
	status  atomic.Int32
	size    atomic.Int64
	started atomic.Bool
}

// NewResponseWriter wraps w. A *ResponseWriter is returned as is.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	rw := &ResponseWriter{ResponseWriter: w}
	rw.status.Store(http.StatusOK)
	return rw
}

// WriteHeader sends the status line. Calls after the first are ignored.
func (w *ResponseWriter) WriteHeader(code int) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.status.Store(int32(code))
	w.ResponseWriter.WriteHeader(code)
}

// Write sends b, implying a 200 status when none was written.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if w.started.CompareAndSwap(false, true) {
		w.ResponseWriter.WriteHeader(int(w.status.Load()))
	}
	n, err := w.ResponseWriter.Write(b)
	w.size.Add(int64(n))
	return n, err
}

// Status is the status sent, or 200 before anything was written.
func (w *ResponseWriter) Status() int { return int(w.status.Load()) }

// Size is the number of body bytes written.
func (w *ResponseWriter) Size() int64 { return w.size.Load() }

// Written reports whether the status line was sent.
func (w *ResponseWriter) Written() bool { return w.started.Load() }

// Flush sends buffered data when the connection supports it.
func (w *ResponseWriter) Flush() {
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Hijack hands the connection over to the caller.
func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Unwrap exposes the connection writer to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// bufferedWriter captures the output of an http.Handler so it can be
// turned into a Response.
type bufferedWriter struct {
	header http.Header
	body   []byte
	status int
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body = append(b.body, p...)
	return len(p), nil
}

func (b *bufferedWriter) response() *Response {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	if b.header.Get("Content-Type") == "" && len(b.body) > 0 {
		b.header.Set("Content-Type", http.DetectContentType(b.body))
	}
	return &Response{Header: b.header, StatusCode: status, body: b.body}
}
