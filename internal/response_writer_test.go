package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
)

func TestResponseWriter_WriteHeader(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := internal.NewResponseWriter(w)
	require.False(t, rw.Written())

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusNotFound, rw.Status())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, rw.Written())
}

func TestResponseWriter_Write(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := internal.NewResponseWriter(w)

	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = rw.Write([]byte(" world"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, int64(11), rw.Size())
	assert.Equal(t, http.StatusOK, rw.Status())
	assert.Equal(t, "hello world", w.Body.String())
}

func TestNewResponseWriter_Reuses(t *testing.T) {
	t.Parallel()

	rw := internal.NewResponseWriter(httptest.NewRecorder())
	assert.Same(t, rw, internal.NewResponseWriter(rw))
}

func TestResponseWriter_Unwrap(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := internal.NewResponseWriter(w)
	assert.Same(t, w, rw.Unwrap())

	rw.Flush()
	assert.True(t, w.Flushed)

	_, _, err := rw.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}
