//go:build integration

package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/pkg/session"
)

const testRedisURL = "redis://localhost:6379/0"

func newTestRedisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = testRedisURL
	}

	opt, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opt)
	require.NoError(t, client.Ping(context.Background()).Err(), "failed to connect to Redis")

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewRedisStore(newTestRedisClient(t), session.WithPrefix("flagon-test"))
	require.NoError(t, store.Ping(ctx))

	t.Run("save load delete", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, store.Save(ctx, "sid-1", []byte(`{"a":1}`), time.Minute))
		data, err := store.Load(ctx, "sid-1")
		require.NoError(t, err)
		require.JSONEq(t, `{"a":1}`, string(data))

		require.NoError(t, store.Delete(ctx, "sid-1"))
		_, err = store.Load(ctx, "sid-1")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("ttl expires", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, store.Save(ctx, "sid-2", []byte(`{}`), 50*time.Millisecond))
		time.Sleep(200 * time.Millisecond)
		_, err := store.Load(ctx, "sid-2")
		require.ErrorIs(t, err, session.ErrNotFound)
	})
}
