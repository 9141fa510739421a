package internal_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
)

type counterExt struct {
	hits int
}

func (e *counterExt) Init(app *internal.App) error {
	app.Extensions().Set("counter", e)
	app.BeforeRequest(func(internal.Context) (any, error) {
		e.hits++
		return nil, nil
	})
	return nil
}

func TestExtensions_Init(t *testing.T) {
	t.Parallel()

	ext := &counterExt{}
	app := internal.New(internal.WithExtensions(ext))
	app.GET("/", text("ok"), internal.EndpointName("index"))

	serve(t, app, http.MethodGet, "/")
	serve(t, app, http.MethodGet, "/")
	assert.Equal(t, 2, ext.hits)

	assert.True(t, app.Extensions().Has("counter"))
	got, err := internal.ExtensionState[*counterExt](app, "counter")
	require.NoError(t, err)
	assert.Same(t, ext, got)

	_, err = internal.ExtensionState[string](app, "counter")
	assert.Error(t, err)
	_, err = internal.ExtensionState[*counterExt](app, "missing")
	assert.Error(t, err)
}

func TestExtensions_InitErrorPanics(t *testing.T) {
	t.Parallel()

	broken := errors.New("broken")
	defer func() {
		err, ok := recover().(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, broken)
	}()
	internal.New(internal.WithExtensions(internal.ExtensionFunc(func(*internal.App) error {
		return broken
	})))
}
