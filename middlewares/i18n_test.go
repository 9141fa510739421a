package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/middlewares"
)

func newLocaleApp(opts ...middlewares.LocaleOption) *internal.App {
	app := internal.New(
		internal.WithExtensions(middlewares.Locale([]string{"en", "de", "pl"}, opts...)),
		internal.WithTemplates(fstest.MapFS{"lang.html": {Data: []byte(`{{.locale}}`)}}),
	)
	app.AddURLRule("/", "index", func(c internal.Context) (any, error) {
		return middlewares.GetLocale(c), nil
	})
	app.AddURLRule("/page", "page", func(c internal.Context) (any, error) {
		return c.Render("lang.html", nil)
	})
	return app
}

func TestLocale(t *testing.T) {
	t.Parallel()

	get := func(app *internal.App, target string, setup func(*http.Request)) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if setup != nil {
			setup(req)
		}
		return do(app, req).Body.String()
	}

	t.Run("defaults to the first language", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "en", get(newLocaleApp(), "/", nil))
	})

	t.Run("accept-language", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "de", get(newLocaleApp(), "/", func(r *http.Request) {
			r.Header.Set("Accept-Language", "de-AT,de;q=0.9,en;q=0.5")
		}))
	})

	t.Run("query beats cookie beats header", func(t *testing.T) {
		t.Parallel()
		app := newLocaleApp()
		setup := func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "lang", Value: "pl"})
			r.Header.Set("Accept-Language", "de")
		}
		require.Equal(t, "pl", get(app, "/", setup))
		require.Equal(t, "de", get(app, "/?lang=de", setup))
	})

	t.Run("unknown values fall back", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "en", get(newLocaleApp(), "/?lang=xx-invalid-tag-!", nil))
	})

	t.Run("custom extractor", func(t *testing.T) {
		t.Parallel()
		app := newLocaleApp(middlewares.WithLocaleExtractor(
			internal.NewExtractor(internal.FromHeader("X-Lang")),
		))
		require.Equal(t, "pl", get(app, "/", func(r *http.Request) { r.Header.Set("X-Lang", "pl") }))
	})

	t.Run("templates see the locale", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "de", get(newLocaleApp(), "/page?lang=de", nil))
	})
}
