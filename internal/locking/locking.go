// Package locking provides a Redis-backed mutual exclusion helper used to
// serialize accrual processing per investor. When no Redis address is
// configured the locker degrades to a no-op so single-instance deployments
// and tests run without Redis.
package locking

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	apperrors "vestra/internal/errors"
	"vestra/internal/logger"
)

const lockTTL = 30 * time.Second

// Locker obtains short-lived per-investor locks. Release the returned
// function when the guarded section completes.
type Locker interface {
	AcquireInvestor(ctx context.Context, investorID string) (release func(), err error)
}

type redisLocker struct {
	client *redislock.Client
}

// NewRedisLocker connects to Redis at addr and returns a Locker backed by
// redislock. An empty addr returns a no-op Locker.
func NewRedisLocker(addr, password string) (Locker, error) {
	if addr == "" {
		return noopLocker{}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logger.Get().Infow("Connected to redis for accrual locking", "addr", addr)
	return &redisLocker{client: redislock.New(rdb)}, nil
}

func (l *redisLocker) AcquireInvestor(ctx context.Context, investorID string) (func(), error) {
	key := fmt.Sprintf("accrual:%s", investorID)
	lock, err := l.client.Obtain(ctx, key, lockTTL, nil)
	if err == redislock.ErrNotObtained {
		logger.Get().Warnw("Accrual lock busy", "investor_id", investorID)
		return nil, apperrors.ErrAccrualInProgress
	} else if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrLockUnavailable, err)
	}
	return func() { _ = lock.Release(ctx) }, nil
}

type noopLocker struct{}

func (noopLocker) AcquireInvestor(context.Context, string) (func(), error) {
	return func() {}, nil
}

// NewNoopLocker returns a Locker that always succeeds. Used in tests.
func NewNoopLocker() Locker {
	return noopLocker{}
}
