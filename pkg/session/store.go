package session

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store persists encoded session data by session id.
type Store interface {
	// Load returns the data stored for id.
	// Returns ErrNotFound if the id is unknown or expired.
	Load(ctx context.Context, id string) ([]byte, error)

	// Save stores data for id. A non-positive ttl means no expiry.
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error

	// Delete removes id. Unknown ids are not an error.
	Delete(ctx context.Context, id string) error
}

// coalescer shares one in-flight backend load between concurrent callers.
// Each caller receives its own copy of the bytes.
type coalescer struct {
	group singleflight.Group
}

func (c *coalescer) load(id string, fn func() ([]byte, error)) ([]byte, error) {
	v, err, _ := c.group.Do(id, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	return append([]byte(nil), data...), nil
}
