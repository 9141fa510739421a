package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

func newMap(t *testing.T, rules ...*routing.Rule) *routing.Map {
	t.Helper()
	m := routing.NewMap()
	for _, r := range rules {
		require.NoError(t, m.Add(r))
	}
	return m
}

func bind(m *routing.Map, method, target string) *routing.Adapter {
	return m.Bind(httptest.NewRequest(method, target, nil), routing.BindOptions{})
}

func TestMap_Add(t *testing.T) {
	t.Parallel()

	t.Run("normalizes methods", func(t *testing.T) {
		t.Parallel()

		r := &routing.Rule{Pattern: "/", Endpoint: "index", Methods: []string{"get", "post", "GET"}}
		newMap(t, r)
		require.Equal(t, []string{"GET", "POST", "HEAD"}, r.Methods)
	})

	t.Run("defaults to GET", func(t *testing.T) {
		t.Parallel()

		r := &routing.Rule{Pattern: "/", Endpoint: "index"}
		newMap(t, r)
		require.Equal(t, []string{"GET", "HEAD"}, r.Methods)
	})

	t.Run("rejects invalid rules", func(t *testing.T) {
		t.Parallel()

		m := routing.NewMap()
		require.ErrorIs(t, m.Add(&routing.Rule{Pattern: "users", Endpoint: "x"}), routing.ErrInvalidRule)
		require.ErrorIs(t, m.Add(&routing.Rule{Pattern: "/users"}), routing.ErrInvalidRule)
		require.ErrorIs(t, m.Add(&routing.Rule{Pattern: "/users/{id", Endpoint: "x"}), routing.ErrInvalidRule)
		require.ErrorIs(t, m.Add(&routing.Rule{Pattern: "/users/{id:[}", Endpoint: "x"}), routing.ErrInvalidRule)
	})

	t.Run("lists params", func(t *testing.T) {
		t.Parallel()

		r := &routing.Rule{Pattern: "/u/{id:[0-9]{1,3}}/{slug}/*", Endpoint: "x"}
		newMap(t, r)
		require.Equal(t, []string{"id", "slug", "*"}, r.Params())
	})
}

func TestAdapter_Match(t *testing.T) {
	t.Parallel()

	m := newMap(t,
		&routing.Rule{Pattern: "/", Endpoint: "index"},
		&routing.Rule{Pattern: "/users/{id:[0-9]+}", Endpoint: "user", Methods: []string{"GET", "DELETE"}},
		&routing.Rule{Pattern: "/docs/", Endpoint: "docs"},
		&routing.Rule{Pattern: "/page", Endpoint: "page", Defaults: map[string]string{"n": "1"}},
	)

	t.Run("matches with params", func(t *testing.T) {
		t.Parallel()

		rule, args, err := bind(m, http.MethodGet, "/users/42").Match()
		require.NoError(t, err)
		require.Equal(t, "user", rule.Endpoint)
		require.Equal(t, map[string]string{"id": "42"}, args)
	})

	t.Run("HEAD is implied by GET", func(t *testing.T) {
		t.Parallel()

		rule, _, err := bind(m, http.MethodHead, "/").Match()
		require.NoError(t, err)
		require.Equal(t, "index", rule.Endpoint)
	})

	t.Run("defaults fill args", func(t *testing.T) {
		t.Parallel()

		_, args, err := bind(m, http.MethodGet, "/page").Match()
		require.NoError(t, err)
		require.Equal(t, "1", args["n"])
	})

	t.Run("method not allowed lists methods", func(t *testing.T) {
		t.Parallel()

		_, _, err := bind(m, http.MethodPost, "/users/42").Match()
		var mna *routing.MethodNotAllowed
		require.ErrorAs(t, err, &mna)
		require.Equal(t, []string{"DELETE", "GET", "HEAD"}, mna.Allowed)
		require.Equal(t, http.StatusMethodNotAllowed, mna.StatusCode())
		require.Equal(t, "DELETE, GET, HEAD", mna.Header().Get("Allow"))
	})

	t.Run("redirects to slash form", func(t *testing.T) {
		t.Parallel()

		_, _, err := bind(m, http.MethodGet, "/docs?q=1").Match()
		var redirect *routing.RequestRedirect
		require.ErrorAs(t, err, &redirect)
		require.Equal(t, "/docs/?q=1", redirect.NewURL)
		require.Equal(t, http.StatusPermanentRedirect, redirect.StatusCode())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		_, _, err := bind(m, http.MethodGet, "/users/abc").Match()
		var nf *routing.NotFound
		require.ErrorAs(t, err, &nf)
		require.Equal(t, http.StatusNotFound, nf.StatusCode())
	})

	t.Run("allowed methods", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, []string{"DELETE", "GET", "HEAD"}, bind(m, http.MethodGet, "/users/1").AllowedMethods(""))
		require.Empty(t, bind(m, http.MethodGet, "/").AllowedMethods("/missing"))
	})
}

func TestAdapter_Subdomains(t *testing.T) {
	t.Parallel()

	m := newMap(t,
		&routing.Rule{Pattern: "/", Endpoint: "index"},
		&routing.Rule{Pattern: "/", Endpoint: "api.index", Subdomain: "api"},
	)
	opts := routing.BindOptions{ServerName: "example.com", SubdomainMatching: true}

	r := httptest.NewRequest(http.MethodGet, "http://api.example.com/", nil)
	rule, _, err := m.Bind(r, opts).Match()
	require.NoError(t, err)
	require.Equal(t, "api.index", rule.Endpoint)

	r = httptest.NewRequest(http.MethodGet, "http://example.com:8080/", nil)
	rule, _, err = m.Bind(r, opts).Match()
	require.NoError(t, err)
	require.Equal(t, "index", rule.Endpoint)

	r = httptest.NewRequest(http.MethodGet, "http://other.org/", nil)
	_, _, err = m.Bind(r, opts).Match()
	require.ErrorAs(t, err, new(*routing.NotFound))

	r = httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	u, err := m.Bind(r, opts).Build("api.index", nil, routing.BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, "http://api.example.com/", u)
}

func TestAdapter_Build(t *testing.T) {
	t.Parallel()

	m := newMap(t,
		&routing.Rule{Pattern: "/users/{id:[0-9]+}", Endpoint: "user"},
		&routing.Rule{Pattern: "/users/{id}/edit", Endpoint: "edit", Methods: []string{"POST"}},
		&routing.Rule{Pattern: "/users/{id}/edit", Endpoint: "edit_form"},
		&routing.Rule{Pattern: "/files/*", Endpoint: "files"},
		&routing.Rule{Pattern: "/list", Endpoint: "list", Defaults: map[string]string{"page": "1"}},
		&routing.Rule{Pattern: "/list/{page}", Endpoint: "list"},
	)
	a := bind(m, http.MethodGet, "/")

	t.Run("substitutes params", func(t *testing.T) {
		t.Parallel()

		u, err := a.Build("user", map[string]any{"id": 7}, routing.BuildOptions{})
		require.NoError(t, err)
		require.Equal(t, "/users/7", u)
	})

	t.Run("extra values become the query string", func(t *testing.T) {
		t.Parallel()

		u, err := a.Build("user", map[string]any{"id": 7, "tab": "posts", "q": []string{"a", "b"}}, routing.BuildOptions{})
		require.NoError(t, err)
		require.Equal(t, "/users/7?q=a&q=b&tab=posts", u)
	})

	t.Run("respects parameter expressions", func(t *testing.T) {
		t.Parallel()

		_, err := a.Build("user", map[string]any{"id": "abc"}, routing.BuildOptions{})
		var be *routing.BuildError
		require.ErrorAs(t, err, &be)
		require.Equal(t, "user", be.Endpoint)
	})

	t.Run("missing params fail", func(t *testing.T) {
		t.Parallel()

		_, err := a.Build("user", nil, routing.BuildOptions{})
		require.ErrorAs(t, err, new(*routing.BuildError))

		_, err = a.Build("nope", nil, routing.BuildOptions{})
		require.ErrorAs(t, err, new(*routing.BuildError))
	})

	t.Run("method selects the rule", func(t *testing.T) {
		t.Parallel()

		u, err := a.Build("edit", map[string]any{"id": 1}, routing.BuildOptions{Method: "POST"})
		require.NoError(t, err)
		require.Equal(t, "/users/1/edit", u)

		_, err = a.Build("edit", map[string]any{"id": 1}, routing.BuildOptions{Method: "GET"})
		require.ErrorAs(t, err, new(*routing.BuildError))
	})

	t.Run("wildcard keeps slashes", func(t *testing.T) {
		t.Parallel()

		u, err := a.Build("files", map[string]any{"*": "css/site main.css"}, routing.BuildOptions{})
		require.NoError(t, err)
		require.Equal(t, "/files/css/site%20main.css", u)
	})

	t.Run("defaults pick the rule", func(t *testing.T) {
		t.Parallel()

		u, err := a.Build("list", map[string]any{"page": 1}, routing.BuildOptions{})
		require.NoError(t, err)
		require.Equal(t, "/list", u)

		u, err = a.Build("list", map[string]any{"page": 3}, routing.BuildOptions{})
		require.NoError(t, err)
		require.Equal(t, "/list/3", u)
	})

	t.Run("external with anchor", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "http://localhost:5000/", nil)
		u, err := m.Bind(r, routing.BindOptions{ScriptName: "/app/"}).Build("user", map[string]any{"id": 1},
			routing.BuildOptions{External: true, Anchor: "top"})
		require.NoError(t, err)
		require.Equal(t, "http://localhost:5000/app/users/1#top", u)
	})

	t.Run("bind without request needs a server name", func(t *testing.T) {
		t.Parallel()

		_, err := m.BindTo("", "", "")
		require.ErrorIs(t, err, routing.ErrNoServerName)

		ad, err := m.BindTo("example.com", "/", "https")
		require.NoError(t, err)
		u, err := ad.Build("user", map[string]any{"id": 2}, routing.BuildOptions{External: true})
		require.NoError(t, err)
		require.Equal(t, "https://example.com/users/2", u)
	})
}

func TestHost(t *testing.T) {
	t.Parallel()

	require.Equal(t, "example.com", routing.NormalizeHost("Example.COM:8080"))
	require.Equal(t, "[::1]", routing.NormalizeHost("[::1]:8080"))

	sub, ok := routing.SplitSubdomain("a.b.example.com", "example.com")
	require.True(t, ok)
	require.Equal(t, "a.b", sub)

	_, ok = routing.SplitSubdomain("example.org", "example.com")
	require.False(t, ok)
}
