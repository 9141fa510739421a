package session

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Session holds values for one client across requests.
type Session struct {
	values map[string]any

	// ID identifies server-side sessions. Empty for cookie sessions.
	ID string

	modified  bool
	accessed  bool
	permanent bool
	isNew     bool
	null      bool
}

// New creates an empty session that has not been persisted yet.
func New(id string) *Session {
	return &Session{
		ID:     id,
		values: make(map[string]any),
		isNew:  true,
	}
}

// Load creates a session from decoded values.
func Load(id string, values map[string]any) *Session {
	if values == nil {
		values = make(map[string]any)
	}
	s := &Session{ID: id, values: values}
	if p, ok := values[permanentKey].(bool); ok {
		s.permanent = p
		delete(s.values, permanentKey)
	}
	return s
}

// NewNull creates a session that reads empty and rejects writes.
func NewNull() *Session {
	return &Session{values: map[string]any{}, null: true}
}

// permanentKey stores the permanent flag next to the values when encoded.
const permanentKey = "_permanent"

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.accessed = true
	v, ok := s.values[key]
	return v, ok
}

// Set stores val under key.
func (s *Session) Set(key string, val any) error {
	if s.null {
		return ErrNull
	}
	s.accessed = true
	s.modified = true
	s.values[key] = val
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Session) Delete(key string) error {
	if s.null {
		return ErrNull
	}
	s.accessed = true
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
	return nil
}

// Pop removes key and returns its value.
func (s *Session) Pop(key string) (any, bool, error) {
	if s.null {
		return nil, false, ErrNull
	}
	s.accessed = true
	v, ok := s.values[key]
	if ok {
		delete(s.values, key)
		s.modified = true
	}
	return v, ok, nil
}

// SetDefault stores val when key is missing and returns the value now held.
func (s *Session) SetDefault(key string, val any) (any, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	if err := s.Set(key, val); err != nil {
		return nil, err
	}
	return val, nil
}

// Clear removes every value.
func (s *Session) Clear() error {
	if s.null {
		return ErrNull
	}
	s.accessed = true
	if len(s.values) > 0 {
		clear(s.values)
		s.modified = true
	}
	return nil
}

// Keys returns the keys in sorted order.
func (s *Session) Keys() []string {
	s.accessed = true
	return slices.Sorted(maps.Keys(s.values))
}

// Len returns the number of values.
func (s *Session) Len() int {
	return len(s.values)
}

// Values returns a copy of the stored values.
func (s *Session) Values() map[string]any {
	s.accessed = true
	return maps.Clone(s.values)
}

// Permanent reports whether the session outlives the browser session.
func (s *Session) Permanent() bool {
	return s.permanent
}

// SetPermanent toggles the persistent cookie.
func (s *Session) SetPermanent(p bool) error {
	if s.null {
		return ErrNull
	}
	if s.permanent != p {
		s.permanent = p
		s.modified = true
	}
	return nil
}

// Modified reports whether the session changed during the request.
func (s *Session) Modified() bool { return s.modified }

// MarkModified forces the session to be saved, for example after mutating
// a nested value in place.
func (s *Session) MarkModified() { s.modified = true }

// Accessed reports whether the session was read or written.
func (s *Session) Accessed() bool { return s.accessed }

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

// IsNull reports whether this is a null session.
func (s *Session) IsNull() bool { return s.null }

// Encode serializes the session for storage.
func (s *Session) Encode() ([]byte, error) {
	out := maps.Clone(s.values)
	if out == nil {
		out = map[string]any{}
	}
	if s.permanent {
		out[permanentKey] = true
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
func Decode(id string, data []byte) (*Session, error) {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return Load(id, values), nil
}

// Value is a typed helper to retrieve session values.
// Returns ErrNotFound if the key doesn't exist and ErrTypeMismatch if the
// stored value has a different type. Values decoded from storage follow
// JSON typing: numbers are float64 and objects are map[string]any.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}

	val, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, key, val)
	}
	return typed, nil
}
