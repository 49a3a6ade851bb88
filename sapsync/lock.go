package sapsync

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/portal_backend/config"
)

var ErrSyncInProgress = errors.New("a sync for this scope is already running")

// Locker serializes reconciliation passes per scope.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker returns a Redis advisory locker, or a no-op one when locking is
// disabled in cfg. A nil client refuses every pass.
func NewLocker(client *redislock.Client, cfg config.SyncConfig) Locker {
	if cfg.LockDisabled {
		return noopLocker{}
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	if l.client == nil {
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

type noopLocker struct{}

func (noopLocker) Obtain(context.Context, string) (func(), error) {
	return func() {}, nil
}

func lockKey(watermarkCode string) string {
	return "sap-sync:" + watermarkCode
}
