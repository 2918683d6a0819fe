package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
)

const runLockPrefix = "pulse:run-lock:"

// RunLock keeps a scheduled job from running on more than one replica at a time.
// Ingestion runs are short relative to the TTL, so the lock is not renewed.
type RunLock struct {
	client *Client
}

// NewRunLock creates new run lock on top of client's redlock manager
func (c *Client) NewRunLock() *RunLock {
	return &RunLock{client: c}
}

// Acquire returns false when another replica holds the lock
func (l *RunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	resource := runLockPrefix + name

	expiry, err := l.client.lockManager.Lock(ctx, resource, ttl)
	if err != nil {
		logger.Debug("run lock held elsewhere",
			zap.String("lock_name", resource),
			zap.Error(err),
		)
		return false, nil
	}
	if expiry <= 0 {
		return false, fmt.Errorf("failed to acquire %s: invalid expiry %v", resource, expiry)
	}

	logger.Debug("run lock acquired",
		zap.String("lock_name", resource),
		zap.Duration("expiry", expiry),
	)
	return true, nil
}

// Release drops the lock; an already expired lock is not an error
func (l *RunLock) Release(ctx context.Context, name string) error {
	resource := runLockPrefix + name

	if err := l.client.lockManager.UnLock(ctx, resource); err != nil {
		logger.Warn("failed to release run lock (may have already expired)",
			zap.String("lock_name", resource),
			zap.Error(err),
		)
	}
	return nil
}
