package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter caps purchase attempts per subject and route with a fixed
// window. The window starts at the first hit; a key left without a TTL would
// block forever, so a failed Expire drops the key and reports the error.
type RateLimiter struct {
	client Counter
}

func NewRateLimiter(client Counter) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	hits, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if hits == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			_ = r.client.Del(ctx, key)
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return hits <= int64(limit), nil
}

// UserRouteKey namespaces a limiter key; subject is a user id or "ip:<addr>".
func UserRouteKey(subject, route string) string {
	return fmt.Sprintf("billing:ratelimit:%s:%s", route, subject)
}
