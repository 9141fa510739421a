package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Errors.
var (
	ErrNotFound = errors.New("cookie: not found")
	ErrNoSecret = errors.New("cookie: secret required")
	ErrBadSig   = errors.New("cookie: invalid signature")
	ErrExpired  = errors.New("cookie: signature expired")
	ErrTooLarge = errors.New("cookie: value too large")
)

// DefaultSalt is the salt used when WithSalt is not given.
const DefaultSalt = "cookie-session"

// Manager writes cookies with shared attributes.
type Manager struct {
	signer    *Signer
	secret    string
	salt      string
	domain    string
	path      string
	fallbacks []string
	maxSize   int
	sameSite  http.SameSite
	secure    bool
	httpOnly  bool
}

// Option configures the Manager.
type Option func(*Manager)

// New creates a cookie Manager with the given options.
func New(opts ...Option) *Manager {
	m := &Manager{
		path:     "/",
		httpOnly: true,
		sameSite: http.SameSiteLaxMode,
		salt:     DefaultSalt,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.signer = NewSigner(m.secret, m.salt, m.fallbacks...)
	return m
}

// WithSecret sets the signing secret.
func WithSecret(secret string) Option {
	return func(m *Manager) {
		m.secret = secret
	}
}

// WithFallbackSecrets adds older secrets that are still accepted when
// verifying signatures.
func WithFallbackSecrets(secrets ...string) Option {
	return func(m *Manager) {
		m.fallbacks = append(m.fallbacks, secrets...)
	}
}

// WithSalt sets the key-derivation salt.
func WithSalt(salt string) Option {
	return func(m *Manager) {
		if salt != "" {
			m.salt = salt
		}
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(m *Manager) {
		m.domain = domain
	}
}

// WithPath sets the cookie path.
func WithPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithSecure sets the Secure flag.
func WithSecure(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithHTTPOnly sets the HttpOnly flag.
func WithHTTPOnly(httpOnly bool) Option {
	return func(m *Manager) {
		m.httpOnly = httpOnly
	}
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(ss http.SameSite) Option {
	return func(m *Manager) {
		m.sameSite = ss
	}
}

// WithMaxSize rejects cookies whose serialized header exceeds n bytes.
// Zero disables the check.
func WithMaxSize(n int) Option {
	return func(m *Manager) {
		m.maxSize = n
	}
}

// HasSecret reports whether signed cookies are available.
func (m *Manager) HasSecret() bool {
	return len(m.signer.keys) > 0
}

// Signer returns the manager's signer.
func (m *Manager) Signer() *Signer {
	return m.signer
}

// Get returns a plain cookie value.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Set writes a plain cookie. A zero expires makes it a browser-session cookie.
func (m *Manager) Set(w http.ResponseWriter, name, value string, expires time.Time) error {
	c := m.Cookie(name, value, expires)
	if m.maxSize > 0 {
		if size := len(c.String()); size > m.maxSize {
			return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, name, size, m.maxSize)
		}
	}
	http.SetCookie(w, c)
	return nil
}

// Delete expires a cookie.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	c := m.Cookie(name, "", time.Time{})
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// GetSigned returns the verified value of a signed cookie.
func (m *Manager) GetSigned(r *http.Request, name string, maxAge time.Duration) ([]byte, error) {
	raw, err := m.Get(r, name)
	if err != nil {
		return nil, err
	}
	return m.signer.Unsign(raw, maxAge)
}

// SetSigned writes a signed cookie.
func (m *Manager) SetSigned(w http.ResponseWriter, name string, value []byte, expires time.Time) error {
	token, err := m.signer.Sign(value)
	if err != nil {
		return err
	}
	return m.Set(w, name, token, expires)
}

// Cookie creates a cookie with the manager's attributes.
func (m *Manager) Cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		Expires:  expires,
		Secure:   m.secure,
		HttpOnly: m.httpOnly,
		SameSite: m.sameSite,
	}
}
