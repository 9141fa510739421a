package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/pkg/session"
)

func TestSession_Flags(t *testing.T) {
	t.Parallel()

	t.Run("reads mark accessed only", func(t *testing.T) {
		t.Parallel()

		s := session.Load("", map[string]any{"a": 1})
		_, ok := s.Get("a")
		require.True(t, ok)
		require.True(t, s.Accessed())
		require.False(t, s.Modified())
	})

	t.Run("writes mark modified", func(t *testing.T) {
		t.Parallel()

		s := session.New("")
		require.True(t, s.IsNew())
		require.NoError(t, s.Set("user", "42"))
		require.True(t, s.Modified())
		require.True(t, s.Accessed())
	})

	t.Run("deleting a missing key is not a change", func(t *testing.T) {
		t.Parallel()

		s := session.Load("", nil)
		require.NoError(t, s.Delete("missing"))
		require.False(t, s.Modified())
	})

	t.Run("pop removes the value", func(t *testing.T) {
		t.Parallel()

		s := session.Load("", map[string]any{"k": "v"})
		v, ok, err := s.Pop("k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v", v)
		require.Zero(t, s.Len())
		require.True(t, s.Modified())
	})

	t.Run("set default keeps existing values", func(t *testing.T) {
		t.Parallel()

		s := session.Load("", map[string]any{"k": "v"})
		v, err := s.SetDefault("k", "other")
		require.NoError(t, err)
		require.Equal(t, "v", v)
		require.False(t, s.Modified())
	})
}

func TestSession_Null(t *testing.T) {
	t.Parallel()

	s := session.NewNull()
	require.True(t, s.IsNull())

	_, ok := s.Get("a")
	require.False(t, ok)

	require.ErrorIs(t, s.Set("a", 1), session.ErrNull)
	require.ErrorIs(t, s.Delete("a"), session.ErrNull)
	require.ErrorIs(t, s.Clear(), session.ErrNull)
	require.ErrorIs(t, s.SetPermanent(true), session.ErrNull)
	_, _, err := s.Pop("a")
	require.ErrorIs(t, err, session.ErrNull)
}

func TestSession_Codec(t *testing.T) {
	t.Parallel()

	s := session.New("id-1")
	require.NoError(t, s.Set("name", "ann"))
	require.NoError(t, s.Set("count", 3))
	require.NoError(t, s.SetPermanent(true))

	data, err := s.Encode()
	require.NoError(t, err)

	decoded, err := session.Decode("id-1", data)
	require.NoError(t, err)
	require.True(t, decoded.Permanent())
	require.Equal(t, []string{"count", "name"}, decoded.Keys())

	count, err := session.Value[float64](decoded, "count")
	require.NoError(t, err)
	require.Equal(t, float64(3), count)

	_, err = session.Value[string](decoded, "count")
	require.ErrorIs(t, err, session.ErrTypeMismatch)

	_, err = session.Value[string](decoded, "missing")
	require.ErrorIs(t, err, session.ErrNotFound)

	_, err = session.Decode("x", []byte("{broken"))
	require.ErrorIs(t, err, session.ErrCodec)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		defer store.Close()

		require.NoError(t, store.Save(ctx, "a", []byte("one"), time.Minute))
		data, err := store.Load(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, "one", string(data))

		_, err = store.Load(ctx, "b")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("loads return private copies", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		defer store.Close()

		require.NoError(t, store.Save(ctx, "a", []byte("one"), 0))
		data, err := store.Load(ctx, "a")
		require.NoError(t, err)
		data[0] = 'X'

		again, err := store.Load(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, "one", string(again))
	})

	t.Run("expired entries are gone", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(session.WithCleanupInterval(0))
		defer store.Close()

		require.NoError(t, store.Save(ctx, "a", []byte("one"), time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := store.Load(ctx, "a")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(session.WithMaxEntries(2))
		defer store.Close()

		require.NoError(t, store.Save(ctx, "a", []byte("1"), 0))
		require.NoError(t, store.Save(ctx, "b", []byte("2"), 0))
		_, err := store.Load(ctx, "a")
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "c", []byte("3"), 0))

		_, err = store.Load(ctx, "b")
		require.ErrorIs(t, err, session.ErrNotFound)
		require.Equal(t, 2, store.Len())
	})

	t.Run("delete and close", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		require.NoError(t, store.Save(ctx, "a", []byte("1"), 0))
		require.NoError(t, store.Delete(ctx, "a"))
		require.NoError(t, store.Delete(ctx, "a"))
		require.Zero(t, store.Len())

		require.NoError(t, store.Close())
		require.NoError(t, store.Close())
		require.ErrorIs(t, store.Save(ctx, "a", nil, 0), session.ErrClosed)
	})

	t.Run("concurrent loads", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		defer store.Close()
		require.NoError(t, store.Save(ctx, "a", []byte("shared"), 0))

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				data, err := store.Load(ctx, "a")
				assert.NoError(t, err)
				assert.Equal(t, "shared", string(data))
			}()
		}
		wg.Wait()
	})
}
