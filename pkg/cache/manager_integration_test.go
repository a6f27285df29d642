//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedisContainer runs redis:7-alpine for the duration of the test.
func startRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestManager_Integration_StoreContract(t *testing.T) {
	rdb := startRedisContainer(t)

	runStoreContract(t, func(t *testing.T) Store {
		require.NoError(t, rdb.FlushDB(context.Background()).Err())
		return NewManager(rdb)
	})
}

// A token replaced by another process after the rejection is kept.
func TestManager_Integration_CompareAndDeleteKeepsReplacedToken(t *testing.T) {
	rdb := startRedisContainer(t)
	ctx := context.Background()
	key := Key{Namespace: "token", ID: "client-1"}
	rejecting, replacing := NewManager(rdb), NewManager(rdb)

	require.NoError(t, rejecting.Set(ctx, key, tokenEntry("tok-1", 5*time.Minute)))
	require.NoError(t, replacing.Set(ctx, key, tokenEntry("tok-2", 5*time.Minute)))

	deleted, err := rejecting.CompareAndDelete(ctx, key, []byte("tok-1"))
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := replacing.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", string(got.Data))
}
