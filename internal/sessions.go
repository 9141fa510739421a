package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagon/pkg/cookie"
	"github.com/dmitrymomot/flagon/pkg/session"
)

// SessionInterface loads and stores the session of a request.
//
// Open returning a nil session makes the request use MakeNull instead.
// Save is called after the after-request functions, only for sessions
// that were used during the request.
type SessionInterface interface {
	Open(ctx context.Context, app *App, r *http.Request) (*session.Session, error)
	Save(ctx context.Context, app *App, s *session.Session, resp *Response) error
	IsNull(s *session.Session) bool
	MakeNull(app *App) *session.Session
}

// nullSessions is the null-session half shared by the built-in
// interfaces.
type nullSessions struct{}

// IsNull reports whether s is a null session.
func (nullSessions) IsNull(s *session.Session) bool {
	return s == nil || s.IsNull()
}

// MakeNull returns a session that reads empty and fails every write with
// ErrNullSession.
func (nullSessions) MakeNull(*App) *session.Session {
	return session.NewNull()
}

// SecureCookieSessionInterface stores the whole session in a signed
// cookie. Without SECRET_KEY every request gets a null session.
type SecureCookieSessionInterface struct {
	nullSessions

	// Salt separates the session signing key from other uses of
	// SECRET_KEY.
	Salt string
}

// NewSecureCookieSessionInterface returns the default session interface.
func NewSecureCookieSessionInterface() *SecureCookieSessionInterface {
	return &SecureCookieSessionInterface{Salt: "cookie-session"}
}

// Open reads the session cookie. A missing, tampered or expired cookie
// starts a new session.
func (si *SecureCookieSessionInterface) Open(_ context.Context, app *App, r *http.Request) (*session.Session, error) {
	m := app.sessionCookies(si.Salt)
	if !m.HasSecret() {
		return nil, nil
	}

	data, err := m.GetSigned(r, app.SessionCookieName(), app.PermanentSessionLifetime())
	switch {
	case errors.Is(err, cookie.ErrNotFound), errors.Is(err, cookie.ErrBadSig), errors.Is(err, cookie.ErrExpired):
		return session.New(""), nil
	case err != nil:
		return nil, err
	}

	s, err := session.Decode("", data)
	if err != nil {
		return session.New(""), nil
	}
	return s, nil
}

// Save writes the session cookie, or deletes it when the session was
// emptied.
func (si *SecureCookieSessionInterface) Save(ctx context.Context, app *App, s *session.Session, resp *Response) error {
	m := app.sessionCookies(si.Salt)
	name := app.SessionCookieName()

	if s.Accessed() {
		resp.AddVary("Cookie")
	}

	if s.Len() == 0 {
		if s.Modified() {
			resp.DeleteCookie(m.Cookie(name, "", time.Time{}))
			resp.AddVary("Cookie")
		}
		return nil
	}

	if !app.shouldSetSessionCookie(s) {
		return nil
	}

	data, err := s.Encode()
	if err != nil {
		return err
	}
	token, err := m.Signer().Sign(data)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	app.setSessionCookie(ctx, resp, m.Cookie(name, token, app.sessionExpiration(s)))
	return nil
}

// ServerSideSessionInterface keeps session data in a session.Store and
// only a signed session id in the cookie.
//
// Example:
//
//	store := session.NewRedisStore(redisClient, session.WithPrefix("myapp:session:"))
//	app := flagon.New(
//	    flagon.WithSecretKey(secret),
//	    flagon.WithSessionInterface(flagon.NewServerSideSessionInterface(store)),
//	)
type ServerSideSessionInterface struct {
	nullSessions

	store session.Store

	// Salt separates the id signing key from other uses of SECRET_KEY.
	Salt string
}

// NewServerSideSessionInterface creates a session interface backed by store.
func NewServerSideSessionInterface(store session.Store) *ServerSideSessionInterface {
	return &ServerSideSessionInterface{store: store, Salt: "server-session"}
}

// Open loads the session named by the cookie. Unknown or expired ids
// start a new session with a fresh id.
func (si *ServerSideSessionInterface) Open(ctx context.Context, app *App, r *http.Request) (*session.Session, error) {
	m := app.sessionCookies(si.Salt)
	if !m.HasSecret() {
		return nil, nil
	}

	raw, err := m.GetSigned(r, app.SessionCookieName(), app.PermanentSessionLifetime())
	if err != nil {
		if errors.Is(err, cookie.ErrNotFound) || errors.Is(err, cookie.ErrBadSig) || errors.Is(err, cookie.ErrExpired) {
			return session.New(newSessionID()), nil
		}
		return nil, err
	}

	id := string(raw)
	data, err := si.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.New(newSessionID()), nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	s, err := session.Decode(id, data)
	if err != nil {
		app.logger.WarnContext(ctx, "discarding undecodable session", slog.Any("error", err))
		return session.New(newSessionID()), nil
	}
	return s, nil
}

// Save persists a modified session and refreshes the cookie.
func (si *ServerSideSessionInterface) Save(ctx context.Context, app *App, s *session.Session, resp *Response) error {
	m := app.sessionCookies(si.Salt)
	name := app.SessionCookieName()

	if s.Accessed() {
		resp.AddVary("Cookie")
	}

	if s.Len() == 0 {
		if s.Modified() {
			if !s.IsNew() {
				if err := si.store.Delete(ctx, s.ID); err != nil {
					return fmt.Errorf("delete session: %w", err)
				}
			}
			resp.DeleteCookie(m.Cookie(name, "", time.Time{}))
			resp.AddVary("Cookie")
		}
		return nil
	}

	if !app.shouldSetSessionCookie(s) {
		return nil
	}

	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := si.store.Save(ctx, s.ID, data, app.PermanentSessionLifetime()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	token, err := m.Signer().Sign([]byte(s.ID))
	if err != nil {
		return fmt.Errorf("sign session id: %w", err)
	}
	app.setSessionCookie(ctx, resp, m.Cookie(name, token, app.sessionExpiration(s)))
	return nil
}

func newSessionID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// SessionCookieName returns SESSION_COOKIE_NAME.
func (a *App) SessionCookieName() string {
	if name := a.stringSetting("SESSION_COOKIE_NAME"); name != "" {
		return name
	}
	return "session"
}

// PermanentSessionLifetime returns PERMANENT_SESSION_LIFETIME.
func (a *App) PermanentSessionLifetime() time.Duration {
	return a.durationSetting("PERMANENT_SESSION_LIFETIME")
}

// sessionCookies builds a cookie manager from the SESSION_COOKIE_*
// settings. The path defaults to APPLICATION_ROOT.
func (a *App) sessionCookies(salt string) *cookie.Manager {
	path := a.stringSetting("SESSION_COOKIE_PATH")
	if path == "" {
		path = a.stringSetting("APPLICATION_ROOT")
	}
	return cookie.New(
		cookie.WithSecret(a.stringSetting("SECRET_KEY")),
		cookie.WithFallbackSecrets(a.stringsSetting("SECRET_KEY_FALLBACKS")...),
		cookie.WithSalt(salt),
		cookie.WithDomain(a.stringSetting("SESSION_COOKIE_DOMAIN")),
		cookie.WithPath(path),
		cookie.WithSecure(a.boolSetting("SESSION_COOKIE_SECURE")),
		cookie.WithHTTPOnly(a.boolSetting("SESSION_COOKIE_HTTPONLY")),
		cookie.WithSameSite(parseSameSite(a.stringSetting("SESSION_COOKIE_SAMESITE"))),
	)
}

// shouldSetSessionCookie reports whether the cookie is written: when the
// session changed, or when it is permanent and refreshed on every request.
func (a *App) shouldSetSessionCookie(s *session.Session) bool {
	return s.Modified() || (s.Permanent() && a.boolSetting("SESSION_REFRESH_EACH_REQUEST"))
}

// sessionExpiration is zero (a browser-session cookie) unless s is
// permanent.
func (a *App) sessionExpiration(s *session.Session) time.Time {
	if !s.Permanent() {
		return time.Time{}
	}
	return time.Now().Add(a.PermanentSessionLifetime())
}

// setSessionCookie adds c to resp and warns when it exceeds MAX_COOKIE_SIZE;
// browsers silently drop such cookies.
func (a *App) setSessionCookie(ctx context.Context, resp *Response, c *http.Cookie) {
	if limit, ok := a.intSetting("MAX_COOKIE_SIZE"); ok && limit > 0 {
		if size := len(c.String()); size > limit {
			a.logger.WarnContext(ctx, "session cookie is too large",
				slog.String("cookie", c.Name),
				slog.Int("size", size),
				slog.Int("limit", limit),
			)
		}
	}
	resp.SetCookie(c)
	resp.AddVary("Cookie")
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
