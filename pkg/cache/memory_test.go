package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryStore_SetAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()
	key := Key{Namespace: "token", ID: "client"}

	require.NoError(t, store.Set(ctx, key, &Entry{
		Data:    []byte("Bearer abc"),
		Expires: clock.now.Add(time.Hour),
	}))

	entry, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", string(entry.Data))
	assert.Equal(t, clock.now, entry.CachedAt)
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()
	key := Key{Namespace: "token", ID: "client"}

	require.NoError(t, store.Set(ctx, key, &Entry{
		Data:    []byte("v"),
		Expires: clock.now.Add(time.Minute),
	}))

	clock.now = clock.now.Add(time.Minute)

	_, err := store.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.Equal(t, 0, store.Len(), "expired entry should be evicted on read")
}

func TestMemoryStore_SetExpiredIsDropped(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Key{ID: "x"}, &Entry{Expires: clock.now.Add(-time.Second)}))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SetNil(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.Set(context.Background(), Key{ID: "x"}, nil))
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{Namespace: "token", ID: "client"}

	require.NoError(t, store.Set(ctx, key, &Entry{Data: []byte("v"), Expires: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Delete(ctx, key))

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, store.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{ID: "copy"}

	data := []byte("original")
	require.NoError(t, store.Set(ctx, key, &Entry{Data: data, Expires: time.Now().Add(time.Hour)}))
	data[0] = 'X'

	entry, err := store.Get(ctx, key)
	require.NoError(t, err)
	entry.Data[1] = 'Y'

	again, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "original", string(again.Data))
}
