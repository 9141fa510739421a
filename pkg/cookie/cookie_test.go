package cookie_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrymomot/flagon/pkg/cookie"
)

const testSecret = "this-is-a-test-secret"

func requestWith(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestSigner(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s := cookie.NewSigner(testSecret, "salt")
		token, err := s.Sign([]byte("hello"))
		if err != nil {
			t.Fatalf("Sign() error = %v", err)
		}
		got, err := s.Unsign(token, 0)
		if err != nil {
			t.Fatalf("Unsign() error = %v", err)
		}
		if string(got) != "hello" {
			t.Errorf("Unsign() = %q, want hello", got)
		}
	})

	t.Run("tampered token", func(t *testing.T) {
		s := cookie.NewSigner(testSecret, "salt")
		token, _ := s.Sign([]byte("hello"))
		tampered := "aGFja2Vk" + token[strings.IndexByte(token, '.'):]
		if _, err := s.Unsign(tampered, 0); !errors.Is(err, cookie.ErrBadSig) {
			t.Errorf("expected ErrBadSig, got %v", err)
		}
		if _, err := s.Unsign("garbage", 0); !errors.Is(err, cookie.ErrBadSig) {
			t.Errorf("expected ErrBadSig, got %v", err)
		}
	})

	t.Run("salt separates signers", func(t *testing.T) {
		a := cookie.NewSigner(testSecret, "a")
		b := cookie.NewSigner(testSecret, "b")
		token, _ := a.Sign([]byte("x"))
		if _, err := b.Unsign(token, 0); !errors.Is(err, cookie.ErrBadSig) {
			t.Errorf("expected ErrBadSig, got %v", err)
		}
	})

	t.Run("fallback secrets verify old tokens", func(t *testing.T) {
		old := cookie.NewSigner("old-secret", "salt")
		token, _ := old.Sign([]byte("x"))

		rotated := cookie.NewSigner("new-secret", "salt", "old-secret")
		if _, err := rotated.Unsign(token, 0); err != nil {
			t.Errorf("Unsign() with fallback error = %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		s := cookie.NewSigner(testSecret, "salt")
		now := time.Now()
		s.SetClock(func() time.Time { return now.Add(-2 * time.Hour) })
		token, _ := s.Sign([]byte("x"))
		s.SetClock(func() time.Time { return now })

		if _, err := s.Unsign(token, time.Hour); !errors.Is(err, cookie.ErrExpired) {
			t.Errorf("expected ErrExpired, got %v", err)
		}
		if _, err := s.Unsign(token, 3*time.Hour); err != nil {
			t.Errorf("Unsign() error = %v", err)
		}
	})

	t.Run("no secret", func(t *testing.T) {
		s := cookie.NewSigner("", "salt")
		if _, err := s.Sign([]byte("x")); !errors.Is(err, cookie.ErrNoSecret) {
			t.Errorf("expected ErrNoSecret, got %v", err)
		}
	})
}

func TestManager(t *testing.T) {
	t.Run("get missing cookie", func(t *testing.T) {
		m := cookie.New()
		if _, err := m.Get(requestWith(), "missing"); !errors.Is(err, cookie.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("attributes", func(t *testing.T) {
		m := cookie.New(
			cookie.WithDomain("example.com"),
			cookie.WithPath("/app"),
			cookie.WithSecure(true),
			cookie.WithSameSite(http.SameSiteStrictMode),
		)
		c := m.Cookie("name", "value", time.Time{})
		if c.Domain != "example.com" || c.Path != "/app" || !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
			t.Errorf("unexpected cookie attributes: %+v", c)
		}
	})

	t.Run("signed round trip through a response", func(t *testing.T) {
		m := cookie.New(cookie.WithSecret(testSecret))
		if !m.HasSecret() {
			t.Fatal("HasSecret() = false")
		}

		w := httptest.NewRecorder()
		if err := m.SetSigned(w, "session", []byte(`{"a":1}`), time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("SetSigned() error = %v", err)
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("expected 1 cookie, got %d", len(cookies))
		}

		got, err := m.GetSigned(requestWith(cookies[0]), "session", 0)
		if err != nil {
			t.Fatalf("GetSigned() error = %v", err)
		}
		if string(got) != `{"a":1}` {
			t.Errorf("GetSigned() = %s", got)
		}
	})

	t.Run("signed without secret", func(t *testing.T) {
		m := cookie.New()
		err := m.SetSigned(httptest.NewRecorder(), "session", []byte("x"), time.Time{})
		if !errors.Is(err, cookie.ErrNoSecret) {
			t.Errorf("expected ErrNoSecret, got %v", err)
		}
	})

	t.Run("max size", func(t *testing.T) {
		m := cookie.New(cookie.WithMaxSize(64))
		err := m.Set(httptest.NewRecorder(), "big", strings.Repeat("x", 100), time.Time{})
		if !errors.Is(err, cookie.ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("delete expires the cookie", func(t *testing.T) {
		m := cookie.New()
		w := httptest.NewRecorder()
		m.Delete(w, "session")
		header := w.Header().Get("Set-Cookie")
		if !strings.Contains(header, "Max-Age=0") {
			t.Errorf("Set-Cookie = %q, want Max-Age=0", header)
		}
	})
}
