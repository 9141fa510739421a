package session

import "errors"

// Session errors.
var (
	// ErrNotFound is returned when a session or a session value does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrNull is returned when writing to a null session. A null session is
	// handed out when sessions are unavailable, usually because no secret
	// key is configured.
	ErrNull = errors.New("session: unavailable, set a secret key to enable sessions")

	// ErrTypeMismatch is returned by Value when the stored value has another type.
	ErrTypeMismatch = errors.New("session: type mismatch")

	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("session: store closed")

	// ErrCodec is returned when session data cannot be encoded or decoded.
	ErrCodec = errors.New("session: codec failure")
)
