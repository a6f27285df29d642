package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis connects to a local Redis and skips the test when none is available.
// manager_integration_test.go runs the same contract against a testcontainers instance.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}
	require.NoError(t, rdb.FlushDB(ctx).Err())

	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

// stores returns every Store implementation the contract tests run against.
func stores() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"redis":  func(t *testing.T) Store { return NewManager(setupTestRedis(t)) },
	}
}

func tokenEntry(value string, ttl time.Duration) *Entry {
	return &Entry{Data: []byte(value), Expires: time.Now().Add(ttl)}
}

func TestStoreContract(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			runStoreContract(t, newStore)
		})
	}
}

// runStoreContract checks the behavior every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	key := Key{Namespace: "token", ID: "client-1"}
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, err := newStore(t).Get(ctx, Key{Namespace: "token", ID: "missing"})
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("set and get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, key, tokenEntry("tok-1", 5*time.Minute)))

		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", string(got.Data))
		assert.False(t, got.CachedAt.IsZero())
	})

	t.Run("expired entry is not stored", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, key, tokenEntry("stale", -time.Hour)))

		_, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("nil entry", func(t *testing.T) {
		assert.Error(t, newStore(t).Set(ctx, key, nil))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, key, tokenEntry("tok-1", 5*time.Minute)))
		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Delete(ctx, key), "deleting a missing key")

		_, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("compare and delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, key, tokenEntry("tok-2", 5*time.Minute)))

		deleted, err := s.CompareAndDelete(ctx, key, []byte("tok-1"))
		require.NoError(t, err)
		assert.False(t, deleted, "a newer token must survive")

		_, err = s.Get(ctx, key)
		require.NoError(t, err)

		deleted, err = s.CompareAndDelete(ctx, key, []byte("tok-2"))
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss)

		deleted, err = s.CompareAndDelete(ctx, key, []byte("tok-2"))
		require.NoError(t, err)
		assert.False(t, deleted, "missing key")
	})
}

func TestNewManager_Panic(t *testing.T) {
	assert.Panics(t, func() { NewManager(nil) })
}

func TestManager_TTLFollowsEntry(t *testing.T) {
	rdb := setupTestRedis(t)
	m := NewManager(rdb)
	ctx := context.Background()
	key := Key{Namespace: "token", ID: "client-1"}

	require.NoError(t, m.Set(ctx, key, tokenEntry("tok", 5*time.Minute)))

	ttl, err := rdb.TTL(ctx, key.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 5*time.Minute)
}

func TestManager_InvalidEntry(t *testing.T) {
	rdb := setupTestRedis(t)
	m := NewManager(rdb)
	ctx := context.Background()
	key := Key{Namespace: "token", ID: "corrupt"}

	require.NoError(t, rdb.Set(ctx, key.String(), "not json", time.Minute).Err())

	_, err := m.Get(ctx, key)
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = m.CompareAndDelete(ctx, key, []byte("tok"))
	assert.ErrorIs(t, err, ErrInvalidEntry)
}
