package usecase

import (
	"context"
	"time"
)

// SweepReport summarizes one reconciler pass.
type SweepReport struct {
	Sweep   string
	Scanned int
	Changed int
	Failed  int
}

// ExpirySweeper is what the scheduler drives on every tick.
type ExpirySweeper interface {
	SweepBoosts(ctx context.Context, now time.Time) (SweepReport, error)
	SweepListings(ctx context.Context, now time.Time) (SweepReport, error)
	SweepSubscriptions(ctx context.Context, now time.Time) (SweepReport, error)
}

// StalePaymentResolver settles payments abandoned mid-flow.
type StalePaymentResolver interface {
	SweepStalePayments(ctx context.Context, now time.Time) (SweepReport, error)
}
