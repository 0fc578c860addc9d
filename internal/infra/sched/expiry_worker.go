package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	ucport "github.com/myagiz61/backend/internal/domain/ports/usecase"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// ExpiryWorker runs the boost, listing and subscription expiry sweeps in turn.
type ExpiryWorker struct {
	sweeper ucport.ExpirySweeper
	log     *zerolog.Logger
}

func NewExpiryWorker(sweeper ucport.ExpirySweeper, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		sweeper: sweeper,
		log:     &exprLog,
	}
}

type sweepFunc func(ctx context.Context, now time.Time) (ucport.SweepReport, error)

// Run is a scheduler job. A failing sweep does not stop the ones after it.
func (w *ExpiryWorker) Run(ctx context.Context, now time.Time) error {
	var errs []error
	for _, sweep := range []struct {
		name string
		fn   sweepFunc
	}{
		{"boosts", w.sweeper.SweepBoosts},
		{"listings", w.sweeper.SweepListings},
		{"subscriptions", w.sweeper.SweepSubscriptions},
	} {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		started := time.Now()
		rep, err := sweep.fn(ctx, now)
		metrics.ObserveSweep(sweep.name, started)
		if err != nil {
			w.log.Error().Err(err).Str("sweep", sweep.name).Msg("expiry sweep failed")
			errs = append(errs, err)
			continue
		}
		if rep.Changed > 0 || rep.Failed > 0 {
			w.log.Info().Str("sweep", sweep.name).Int("changed", rep.Changed).Int("failed", rep.Failed).Msg("expired entitlements settled")
		}
	}
	return errors.Join(errs...)
}
