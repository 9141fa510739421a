package dispatcher_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/pkg/dispatcher"
)

func text(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dispatcher.ScriptName(r) + "|" + r.URL.Path))
	})
}

func serve(h http.Handler, host, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDispatcher_Hosts(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(text("fallback"),
		dispatcher.Host("example.com", text("example")),
		dispatcher.Host("*.example.com", text("wildcard")),
		dispatcher.Host("specific.example.com", text("specific")),
		dispatcher.Host("", text("ignored")),
	)

	tests := []struct {
		name string
		host string
		want string
	}{
		{"exact", "example.com", "example"},
		{"case and port", "Example.COM:8080", "example"},
		{"specific beats wildcard", "specific.example.com", "specific"},
		{"wildcard", "tenant.example.com", "wildcard"},
		{"wildcard is one level", "a.b.example.com", "fallback"},
		{"unknown", "other.com", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, serve(d, tt.host, "/").Body.String())
		})
	}
}

func TestDispatcher_Mounts(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(echo(),
		dispatcher.Mount("/admin", echo()),
		dispatcher.Mount("/admin/api/", echo()),
	)

	tests := []struct {
		path string
		want string
	}{
		{"/admin", "/admin|/"},
		{"/admin/users", "/admin|/users"},
		{"/admin/api/v1", "/admin/api|/v1"},
		{"/administrator", "|/administrator"},
		{"/", "|/"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, serve(d, "example.com", tt.path).Body.String())
		})
	}
}

func TestDispatcher_NestedMounts(t *testing.T) {
	t.Parallel()

	inner := dispatcher.New(nil, dispatcher.Mount("/v2", echo()))
	outer := dispatcher.New(nil, dispatcher.Mount("/api", inner))

	require.Equal(t, "/api/v2|/items", serve(outer, "example.com", "/api/v2/items").Body.String())
}

func TestDispatcher_NilFallback(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(nil)
	require.Equal(t, http.StatusNotFound, serve(d, "example.com", "/").Code)
}
