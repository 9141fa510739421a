package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis under "{prefix}:{id}".
type RedisStore struct {
	client redis.UniversalClient
	loads  coalescer
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. Default: "session".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store on an existing client. The caller owns the
// client and closes it on shutdown.
//
// Example:
//
//	opt, _ := redis.ParseURL(os.Getenv("REDIS_URL"))
//	store := session.NewRedisStore(redis.NewClient(opt))
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "session"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) ([]byte, error) {
	return s.loads.load(id, func() ([]byte, error) {
		data, err := s.client.Get(ctx, s.key(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return data, nil
	})
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(id), data, max(ttl, 0)).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Ping checks the connection. It matches the readiness check signature.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("session: redis client is nil")
	}
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + ":" + id
}

var _ Store = (*RedisStore)(nil)
