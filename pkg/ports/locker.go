package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker provides cross-replica concurrency control so that only
// one process steps a given session at a time.
type DistributedLocker interface {
	// Lock acquires the lock for key, waiting until it is available or ctx
	// is done. Returns an UnlockFunc that MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
