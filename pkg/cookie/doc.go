// Package cookie writes HTTP cookies and signs their values.
//
// A [Signer] produces tamper-evident tokens of the form
// "payload.timestamp.signature" using HMAC-SHA256 with a key derived from
// the application secret and a salt. Old secrets can be kept as fallbacks
// so rotating the secret does not invalidate every cookie at once; tokens
// are always signed with the newest key.
//
//	s := cookie.NewSigner(secret, "cookie-session")
//	token := s.Sign([]byte("hello"))
//	value, err := s.Unsign(token, 24*time.Hour)
//
// A [Manager] holds the cookie attributes (path, domain, flags) and wraps a
// Signer for signed cookies:
//
//	m := cookie.New(cookie.WithSecret(secret), cookie.WithSecure(true))
//	err := m.SetSigned(w, "session", payload, time.Now().Add(time.Hour))
//	payload, err := m.GetSigned(r, "session", 0)
//
// # Errors
//
//   - [ErrNotFound]: cookie does not exist
//   - [ErrNoSecret]: signing requested without a secret
//   - [ErrBadSig]: signature verification failed
//   - [ErrExpired]: signature is valid but older than the allowed age
//   - [ErrTooLarge]: the serialized cookie exceeds the configured size
package cookie
