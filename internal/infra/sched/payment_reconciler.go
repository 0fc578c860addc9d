package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	ucport "github.com/myagiz61/backend/internal/domain/ports/usecase"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// PaymentReconciler settles payments whose callback never arrived or whose
// apply was interrupted. Every pass goes through the same lock as a callback.
type PaymentReconciler struct {
	resolver ucport.StalePaymentResolver
	log      *zerolog.Logger
}

func NewPaymentReconciler(resolver ucport.StalePaymentResolver, logger *zerolog.Logger) *PaymentReconciler {
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{resolver: resolver, log: &l}
}

func (w *PaymentReconciler) Run(ctx context.Context, now time.Time) error {
	started := time.Now()
	rep, err := w.resolver.SweepStalePayments(ctx, now)
	metrics.ObserveSweep("stale_payments", started)
	if err != nil {
		w.log.Error().Err(err).Msg("stale payment sweep failed")
		return err
	}
	if rep.Scanned > 0 {
		w.log.Info().Int("scanned", rep.Scanned).Int("settled", rep.Changed).Int("failed", rep.Failed).Msg("stale payments reconciled")
	}
	return nil
}
