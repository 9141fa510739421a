package internal

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/dmitrymomot/flagon/pkg/session"
)

// TestClient sends requests to an application without a network and keeps
// cookies between them. With TESTING or PROPAGATE_EXCEPTIONS set,
// unhandled errors are returned from the request methods instead of
// becoming a 500 response.
//
// Example:
//
//	app := flagon.New(flagon.WithTesting(true), flagon.WithSecretKey("test"))
//	client := app.TestClient()
//	rec, err := client.Get("/login")
//	require.NoError(t, err)
//	assert.Equal(t, http.StatusOK, rec.Code)
type TestClient struct {
	app  *App
	jar  http.CookieJar
	host string
}

// TestClient returns a client for a.
func (a *App) TestClient() *TestClient {
	jar, _ := cookiejar.New(nil)
	host := a.stringSetting("SERVER_NAME")
	if host == "" {
		host = "localhost"
	}
	return &TestClient{app: a, jar: jar, host: host}
}

// Get sends a GET request.
func (c *TestClient) Get(target string) (*httptest.ResponseRecorder, error) {
	return c.Do(httptest.NewRequest(http.MethodGet, c.url(target), nil))
}

// Post sends a POST request with body.
func (c *TestClient) Post(target, contentType string, body io.Reader) (*httptest.ResponseRecorder, error) {
	r := httptest.NewRequest(http.MethodPost, c.url(target), body)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return c.Do(r)
}

// PostForm sends a url-encoded form.
func (c *TestClient) PostForm(target string, form url.Values) (*httptest.ResponseRecorder, error) {
	return c.Post(target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// Do sends r through the middleware and dispatch of the application.
// Stored cookies are added to r and cookies of the response are stored.
func (c *TestClient) Do(r *http.Request) (rec *httptest.ResponseRecorder, err error) {
	if r.URL.Host == "" {
		r.URL.Host = c.host
		r.Host = c.host
	}
	if r.URL.Scheme == "" {
		r.URL.Scheme = "http"
	}
	for _, ck := range c.jar.Cookies(r.URL) {
		r.AddCookie(ck)
	}

	rec = httptest.NewRecorder()
	defer func() {
		if p := recover(); p != nil {
			if perr, ok := p.(error); ok {
				err = perr
				return
			}
			panic(p)
		}
		c.jar.SetCookies(r.URL, rec.Result().Cookies())
	}()

	c.app.ServeHTTP(rec, r)
	return rec, nil
}

// Cookies returns the cookies the client would send to target.
func (c *TestClient) Cookies(target string) []*http.Cookie {
	u, err := url.Parse(c.url(target))
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// SessionTransaction opens the session the next request would see, passes
// it to fn and stores the result in the client's cookies.
//
// Example:
//
//	err := client.SessionTransaction(func(s *session.Session) error {
//	    return s.Set("user_id", "42")
//	})
func (c *TestClient) SessionTransaction(fn func(s *session.Session) error) error {
	r := httptest.NewRequest(http.MethodGet, c.url("/"), nil)
	for _, ck := range c.jar.Cookies(r.URL) {
		r.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	rc := c.app.RequestContext(rec, r)
	if err := rc.Push(); err != nil {
		return err
	}
	defer rc.Pop(nil)

	si := c.app.sessionInterface
	s, err := si.Open(rc, c.app, rc.request.Request)
	if err != nil {
		return err
	}
	if s == nil || si.IsNull(s) {
		return fmt.Errorf("session transaction: %w", ErrNullSession)
	}
	if err := fn(s); err != nil {
		return err
	}

	resp := NewResponse(nil, http.StatusOK, "")
	if err := si.Save(rc, c.app, s, resp); err != nil {
		return err
	}
	c.jar.SetCookies(r.URL, (&http.Response{Header: resp.Header}).Cookies())
	return nil
}

func (c *TestClient) url(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return "http://" + c.host + target
}

// TestRequestContext creates a pushed request context for r, so code that
// needs an active request can be called directly. The returned function
// pops it.
//
// Example:
//
//	ctx, done, err := app.TestRequestContext(httptest.NewRequest("GET", "/users/1", nil))
//	require.NoError(t, err)
//	defer done()
//	u, err := app.URLFor(ctx, "users.show", map[string]any{"id": 2})
func (a *App) TestRequestContext(r *http.Request) (*RequestContext, func(), error) {
	rc := a.RequestContext(httptest.NewRecorder(), r)
	if err := rc.Push(); err != nil {
		return nil, nil, err
	}
	return rc, func() { _ = rc.Pop(nil) }, nil
}
