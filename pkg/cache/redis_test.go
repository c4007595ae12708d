package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := NewRedisClient(&Config{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, srv
}

func TestNewRedisClientPingFailure(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisClient(&Config{Addr: addr})
	assert.Error(t, err)
}

func TestDeleteByPatternWalksEveryPage(t *testing.T) {
	client, srv := newTestClient(t)

	for i := 0; i < 250; i++ {
		require.NoError(t, srv.Set(fmt.Sprintf("products:list:c1:%d", i), "cached"))
	}
	require.NoError(t, srv.Set("products:list:c2:0", "cached"))
	require.NoError(t, srv.Set("product:1", "cached"))

	removed, err := client.DeleteByPattern(context.Background(), "products:list:c1:*")

	require.NoError(t, err)
	assert.Equal(t, 250, removed)
	assert.ElementsMatch(t, []string{"products:list:c2:0", "product:1"}, srv.Keys())
}

func TestDeleteByPatternNoMatches(t *testing.T) {
	client, srv := newTestClient(t)
	require.NoError(t, srv.Set("product:1", "cached"))

	removed, err := client.DeleteByPattern(context.Background(), "products:list:*")

	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.True(t, srv.Exists("product:1"))
}

func TestLockIsHeldUntilOwnerReleases(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	ok, err := client.TryLock(ctx, "run-lock", "owner", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, srv.TTL("run-lock"))

	ok, err = client.TryLock(ctx, "run-lock", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a stale token must not release someone else's lock
	require.NoError(t, client.Unlock(ctx, "run-lock", "other"))
	got, err := srv.Get("run-lock")
	require.NoError(t, err)
	assert.Equal(t, "owner", got)

	require.NoError(t, client.Unlock(ctx, "run-lock", "owner"))
	assert.False(t, srv.Exists("run-lock"))

	ok, err = client.TryLock(ctx, "run-lock", "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	ok, err := client.TryLock(ctx, "run-lock", "crashed", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(time.Minute + time.Second)

	ok, err = client.TryLock(ctx, "run-lock", "next", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
