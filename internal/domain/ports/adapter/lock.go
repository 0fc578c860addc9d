package adapter

import (
	"context"
	"time"
)

// Locker is a short-lived cross-process lock keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
