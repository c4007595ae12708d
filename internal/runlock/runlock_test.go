package runlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/pkg/cache"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func (f *fakeStore) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.keys == nil {
		f.keys = map[string]string{}
	}
	if _, held := f.keys[key]; held {
		return false, nil
	}
	f.keys[key] = token
	return true, nil
}

func (f *fakeStore) Unlock(ctx context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] == token {
		delete(f.keys, key)
	}
	return nil
}

func TestLocalRejectsOverlappingRuns(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.TryLock(ctx)
	require.NoError(t, err)

	_, err = l.TryLock(ctx)
	assert.ErrorIs(t, err, product.ErrRunInProgress)

	unlock()
	unlock()

	unlock, err = l.TryLock(ctx)
	require.NoError(t, err)
	unlock()
}

func TestDistributedRejectsOverlappingRuns(t *testing.T) {
	store := &fakeStore{}
	first := NewDistributed(store, "", 0, logger.NewNop())
	second := NewDistributed(store, "", 0, logger.NewNop())
	ctx := context.Background()

	unlock, err := first.TryLock(ctx)
	require.NoError(t, err)

	_, err = second.TryLock(ctx)
	assert.ErrorIs(t, err, product.ErrRunInProgress)

	unlock()
	assert.Empty(t, store.keys)

	unlock, err = second.TryLock(ctx)
	require.NoError(t, err)
	unlock()
}

func TestDistributedStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	d := NewDistributed(store, "k", time.Minute, logger.NewNop())

	_, err := d.TryLock(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.NotErrorIs(t, err, product.ErrRunInProgress)
}

func TestDistributedOverRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	newClient := func() *cache.RedisClient {
		client, err := cache.NewRedisClient(&cache.Config{Addr: srv.Addr()})
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		return client
	}
	first := NewDistributed(newClient(), "", time.Minute, logger.NewNop())
	second := NewDistributed(newClient(), "", time.Minute, logger.NewNop())
	ctx := context.Background()

	unlock, err := first.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, srv.Exists(DefaultKey))

	_, err = second.TryLock(ctx)
	assert.ErrorIs(t, err, product.ErrRunInProgress)

	unlock()
	unlock()
	assert.False(t, srv.Exists(DefaultKey))

	unlock, err = second.TryLock(ctx)
	require.NoError(t, err)
	unlock()
}
