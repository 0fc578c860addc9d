package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/rs/zerolog"
)

// LeaderGuard lets exactly one instance run a named job per tick.
type LeaderGuard struct {
	rs  *redsync.Redsync
	ttl time.Duration
	log *zerolog.Logger
}

func NewLeaderGuard(c *Client, ttl time.Duration, logger *zerolog.Logger) *LeaderGuard {
	l := logger.With().Str("component", "LeaderGuard").Logger()
	return &LeaderGuard{
		rs:  redsync.New(goredis.NewPool(c.cli)),
		ttl: ttl,
		log: &l,
	}
}

// Run executes fn if this instance wins the lock for name. A lost race is
// reported as ran=false with no error.
func (g *LeaderGuard) Run(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	m := g.rs.NewMutex("leader:"+name, redsync.WithExpiry(g.ttl), redsync.WithTries(1))
	if err := m.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			g.log.Debug().Str("job", name).Msg("another instance holds the job lock")
			return false, nil
		}
		return false, err
	}
	defer func() {
		if _, err := m.UnlockContext(context.Background()); err != nil {
			g.log.Warn().Err(err).Str("job", name).Msg("job lock release failed")
		}
	}()
	return true, fn(ctx)
}
