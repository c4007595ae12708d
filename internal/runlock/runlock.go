package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultKey = "catalog-sync:run-lock"
	DefaultTTL = 30 * time.Minute
)

// Local serializes runs inside one process.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryLock(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, product.ErrRunInProgress
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}

// Store is a key/value store that supports set-if-absent with expiry and token-checked
// release. *cache.RedisClient implements it.
type Store interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Distributed serializes runs across processes sharing one Redis.
type Distributed struct {
	store  Store
	key    string
	ttl    time.Duration
	logger logger.ZapLogger
}

func NewDistributed(store Store, key string, ttl time.Duration, log logger.ZapLogger) *Distributed {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Distributed{store: store, key: key, ttl: ttl, logger: log}
}

func (d *Distributed) TryLock(ctx context.Context) (func(), error) {
	token := uuid.New().String()
	ok, err := d.store.TryLock(ctx, d.key, token, d.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, product.ErrRunInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release even if the run's context was canceled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.store.Unlock(ctx, d.key, token); err != nil {
				d.logger.Error("failed to release run lock", zap.String("key", d.key), zap.Error(err))
			}
		})
	}, nil
}
