package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// Signer signs and verifies timestamped values.
type Signer struct {
	now  func() time.Time
	keys [][]byte // newest first
}

// NewSigner derives signing keys from secret and fallbacks using salt.
// Empty secrets are skipped; a signer without keys fails every call with
// ErrNoSecret.
func NewSigner(secret, salt string, fallbacks ...string) *Signer {
	s := &Signer{now: time.Now}
	for _, sec := range append([]string{secret}, fallbacks...) {
		if sec == "" {
			continue
		}
		s.keys = append(s.keys, deriveKey(sec, salt))
	}
	return s
}

// SetClock replaces the time source. Intended for tests.
func (s *Signer) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// deriveKey mixes the salt into the secret so one secret can serve
// several independent signers.
func deriveKey(secret, salt string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(salt))
	return mac.Sum(nil)
}

// Sign returns the token for value.
func (s *Signer) Sign(value []byte) (string, error) {
	if len(s.keys) == 0 {
		return "", ErrNoSecret
	}
	payload := base64.RawURLEncoding.EncodeToString(value) + "." +
		strconv.FormatInt(s.now().Unix(), 36)
	return payload + "." + signature(s.keys[0], payload), nil
}

// Unsign verifies token and returns the original value. A positive maxAge
// rejects tokens signed longer ago than that with ErrExpired.
func (s *Signer) Unsign(token string, maxAge time.Duration) ([]byte, error) {
	if len(s.keys) == 0 {
		return nil, ErrNoSecret
	}

	idx := strings.LastIndexByte(token, '.')
	if idx == -1 {
		return nil, ErrBadSig
	}
	payload, sig := token[:idx], token[idx+1:]

	valid := false
	for _, key := range s.keys {
		if hmac.Equal([]byte(sig), []byte(signature(key, payload))) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrBadSig
	}

	encoded, stamp, ok := strings.Cut(payload, ".")
	if !ok {
		return nil, ErrBadSig
	}
	ts, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil {
		return nil, ErrBadSig
	}
	if maxAge > 0 && s.now().Sub(time.Unix(ts, 0)) > maxAge {
		return nil, ErrExpired
	}

	value, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrBadSig
	}
	return value, nil
}

func signature(key []byte, payload string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
