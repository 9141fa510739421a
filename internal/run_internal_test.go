package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedApp(body string) *App {
	app := New()
	app.AddURLRule("/", "index", func(Context) (any, error) { return body, nil })
	app.AddURLRule("/where", "where", func(c Context) (any, error) { return c.URLFor("index", nil) })
	return app
}

func TestRun_NoApps(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Run(), ErrNoApps)
}

func TestServerConfig_Handler(t *testing.T) {
	t.Parallel()

	cfg := newServerConfig(
		Domain("api.example.com", namedApp("api")),
		Mount("/admin", namedApp("admin")),
		Fallback(namedApp("site")),
	)
	h, err := cfg.handler()
	require.NoError(t, err)

	get := func(target string) string {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec.Body.String()
	}

	assert.Equal(t, "api", get("http://api.example.com/"))
	assert.Equal(t, "admin", get("http://example.com/admin/"))
	assert.Equal(t, "/admin/", get("http://example.com/admin/where"))
	assert.Equal(t, "site", get("http://example.com/"))
}

func TestServerConfig_FallbackOnly(t *testing.T) {
	t.Parallel()

	site := namedApp("site")
	h, err := newServerConfig(Fallback(site)).handler()
	require.NoError(t, err)
	assert.Same(t, site, h)
}

func TestServerConfig_NoFallbackIsNotFound(t *testing.T) {
	t.Parallel()

	h, err := newServerConfig(Mount("/admin", namedApp("admin"))).handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_HooksAndShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var order []string
	cfg := newServerConfig(
		Fallback(namedApp("site")),
		Address("127.0.0.1:0"),
		WithContext(ctx),
		ShutdownTimeout(time.Second),
		StartupHook(func(context.Context) error {
			order = append(order, "startup")
			cancel()
			return nil
		}),
		ShutdownHook(func(context.Context) error {
			order = append(order, "first")
			return errors.New("close failed")
		}),
		ShutdownHook(func(context.Context) error {
			order = append(order, "second")
			return nil
		}),
	)
	h, err := cfg.handler()
	require.NoError(t, err)

	err = cfg.serve(h)
	assert.ErrorContains(t, err, "close failed")
	assert.Equal(t, []string{"startup", "first", "second"}, order)
}

func TestServe_StartupHookAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("migrations pending")
	cfg := newServerConfig(
		Fallback(namedApp("site")),
		Address("127.0.0.1:0"),
		StartupHook(func(context.Context) error { return boom }),
	)
	err := cfg.serve(http.NotFoundHandler())
	assert.ErrorIs(t, err, boom)
}
