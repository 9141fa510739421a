package middlewares_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/dmitrymomot/flagon/internal"
)

// newApp returns an application with the extensions and a "/" view
// answering GET and POST.
func newApp(ext ...internal.Extension) *internal.App {
	app := internal.New(internal.WithExtensions(ext...))
	app.AddURLRule("/", "index", func(internal.Context) (any, error) {
		return "ok", nil
	}, internal.Methods(http.MethodGet, http.MethodPost))
	return app
}

func do(app *internal.App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}
