package services

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SubmitGuard rejects duplicate in-flight submissions of the same action.
type SubmitGuard struct {
	locker *redislock.Client
	ttl    time.Duration
	log    *zap.SugaredLogger

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

// NewSubmitGuard locks through Redis when rdb is non-nil and an in-process
// map otherwise. ttl bounds how long a crashed request can hold a lock.
func NewSubmitGuard(rdb *redis.Client, ttl time.Duration) *SubmitGuard {
	g := &SubmitGuard{
		ttl:   ttl,
		log:   logger.GetLogger().Named("submit_guard"),
		local: make(map[string]time.Time),
		now:   time.Now,
	}
	if rdb != nil {
		g.locker = redislock.New(rdb)
	}
	return g
}

// Acquire takes the lock for key. A held lock yields a CONFLICT error.
func (g *SubmitGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if g.locker == nil {
		return g.acquireLocal(key)
	}

	lock, err := g.locker.Obtain(ctx, key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperrors.NewConflictError("Submission already in progress", key)
	}
	if err != nil {
		g.log.Errorw("Failed to acquire submit lock", "key", key, "error", err)
		return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to acquire submit lock")
	}

	return func() {
		// The request context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			g.log.Warnw("Failed to release submit lock", "key", key, "error", err)
		}
	}, nil
}

func (g *SubmitGuard) acquireLocal(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, held := g.local[key]; held && now.Before(expires) {
		return nil, apperrors.NewConflictError("Submission already in progress", key)
	}
	expires := now.Add(g.ttl)
	g.local[key] = expires

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.local[key].Equal(expires) {
			delete(g.local, key)
		}
	}, nil
}
