package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands deliveries to the pool so grants and sweeps never wait
// on the notification store. Delivery failures are logged only.
type AsyncNotifier struct {
	inner   adapter.Notifier
	pool    *Pool
	timeout time.Duration
	log     *zerolog.Logger
}

func NewAsyncNotifier(inner adapter.Notifier, pool *Pool, logger *zerolog.Logger) *AsyncNotifier {
	l := logger.With().Str("component", "AsyncNotifier").Logger()
	return &AsyncNotifier{inner: inner, pool: pool, timeout: 10 * time.Second, log: &l}
}

func (n *AsyncNotifier) Notify(_ context.Context, userID, title, message string) error {
	err := n.pool.Submit(func(ctx context.Context) error {
		dctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if err := n.inner.Notify(dctx, userID, title, message); err != nil {
			metrics.IncNotification("in_app", "error")
			n.log.Warn().Err(err).Str("user_id", userID).Msg("notification delivery failed")
			return nil
		}
		metrics.IncNotification("in_app", "sent")
		return nil
	})
	if err != nil {
		metrics.IncNotification("in_app", "dropped")
		n.log.Warn().Err(err).Str("user_id", userID).Msg("notification dropped")
	}
	return err
}
