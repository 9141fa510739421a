package internal_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
)

// extractVia sends req to GET /items/{id} and runs fn inside the view.
func extractVia(t *testing.T, req *http.Request, fn func(c internal.Context)) {
	t.Helper()

	app := internal.New(internal.WithTesting(true), internal.WithSecretKey("secret"))
	app.Route("/items/{id}", func(c internal.Context) (any, error) {
		fn(c)
		return "ok", nil
	}, internal.EndpointName("item"), internal.Methods("GET", "POST"))

	rec := httptest.NewRecorder()
	require.NoError(t, app.Dispatch(rec, req))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractor_FirstMatchWins(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/items/42?token=from-query", nil)
	req.Header.Set("X-Token", "from-header")

	extractVia(t, req, func(c internal.Context) {
		e := internal.NewExtractor(
			internal.FromHeader("X-Missing"),
			internal.FromHeader("X-Token"),
			internal.FromQuery("token"),
		)
		v, ok := e.Extract(c)
		require.True(t, ok)
		require.Equal(t, "from-header", v)
	})
}

func TestExtractor_AllMiss(t *testing.T) {
	t.Parallel()

	extractVia(t, httptest.NewRequest(http.MethodGet, "/items/1", nil), func(c internal.Context) {
		v, ok := internal.NewExtractor(internal.FromQuery("a"), internal.FromCookie("b")).Extract(c)
		require.False(t, ok)
		require.Empty(t, v)
	})
}

func TestExtractorSources(t *testing.T) {
	t.Parallel()

	t.Run("param", func(t *testing.T) {
		t.Parallel()
		extractVia(t, httptest.NewRequest(http.MethodGet, "/items/42", nil), func(c internal.Context) {
			v, ok := internal.FromParam("id")(c)
			require.True(t, ok)
			require.Equal(t, "42", v)
		})
	})

	t.Run("cookie", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
		req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
		extractVia(t, req, func(c internal.Context) {
			v, ok := internal.FromCookie("theme")(c)
			require.True(t, ok)
			require.Equal(t, "dark", v)
		})
	})

	t.Run("form", func(t *testing.T) {
		t.Parallel()
		form := url.Values{"name": {"gopher"}}
		req := httptest.NewRequest(http.MethodPost, "/items/1", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		extractVia(t, req, func(c internal.Context) {
			v, ok := internal.FromForm("name")(c)
			require.True(t, ok)
			require.Equal(t, "gopher", v)
		})
	})

	t.Run("session formats non-string values", func(t *testing.T) {
		t.Parallel()
		extractVia(t, httptest.NewRequest(http.MethodGet, "/items/1", nil), func(c internal.Context) {
			require.NoError(t, c.Session().Set("user_id", 7))
			v, ok := internal.FromSession("user_id")(c)
			require.True(t, ok)
			require.Equal(t, "7", v)
		})
	})

	t.Run("global", func(t *testing.T) {
		t.Parallel()
		extractVia(t, httptest.NewRequest(http.MethodGet, "/items/1", nil), func(c internal.Context) {
			c.G().Set("tenant", "acme")
			v, ok := internal.FromGlobal("tenant")(c)
			require.True(t, ok)
			require.Equal(t, "acme", v)
		})
	})

	t.Run("bearer token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
		req.Header.Set("Authorization", "bearer abc123")
		extractVia(t, req, func(c internal.Context) {
			v, ok := internal.FromBearerToken()(c)
			require.True(t, ok)
			require.Equal(t, "abc123", v)
		})
	})

	t.Run("bearer token rejects other schemes", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		extractVia(t, req, func(c internal.Context) {
			_, ok := internal.FromBearerToken()(c)
			require.False(t, ok)
		})
	})
}

func TestLogExtractors(t *testing.T) {
	t.Parallel()

	t.Run("outside a request", func(t *testing.T) {
		t.Parallel()
		_, ok := internal.EndpointExtractor()(context.Background())
		require.False(t, ok)
	})

	t.Run("inside a request", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/items/9", nil)
		req.Header.Set("X-Request-ID", "rid-1")
		extractVia(t, req, func(c internal.Context) {
			attr, ok := internal.EndpointExtractor()(c)
			require.True(t, ok)
			require.Equal(t, slog.String("endpoint", "item"), attr)

			attr, ok = internal.LogExtractor("request_id", internal.NewExtractor(internal.FromHeader("X-Request-ID")))(c)
			require.True(t, ok)
			require.Equal(t, "rid-1", attr.Value.String())
		})
	})
}
