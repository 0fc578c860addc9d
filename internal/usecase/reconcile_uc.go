// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	ucport "github.com/myagiz61/backend/internal/domain/ports/usecase"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// Compile-time checks
var (
	_ ucport.ExpirySweeper        = (*reconcileUC)(nil)
	_ ucport.StalePaymentResolver = (*reconcileUC)(nil)
)

type ReconcileOptions struct {
	BatchSize  int
	StaleAfter time.Duration
}

// reconcileUC deactivates expired grants and settles abandoned payments.
// Every record is handled on its own; sweeps only ever write the deactivated
// form of a flag so they cannot undo a concurrent purchase.
type reconcileUC struct {
	boosts   repository.BoostRepository
	subs     repository.SubscriptionRepository
	listings repository.ListingRepository
	users    repository.UserRepository
	payments repository.PaymentRepository
	payUC    PaymentUseCase
	notifier adapter.Notifier
	msgs     Messages
	opts     ReconcileOptions
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	boosts repository.BoostRepository,
	subs repository.SubscriptionRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	payments repository.PaymentRepository,
	payUC PaymentUseCase,
	notifier adapter.Notifier,
	msgs Messages,
	opts ReconcileOptions,
	logger *zerolog.Logger,
) *reconcileUC {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Minute
	}
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		boosts: boosts, subs: subs, listings: listings, users: users,
		payments: payments, payUC: payUC, notifier: notifier, msgs: msgs,
		opts: opts, log: &l,
	}
}

const (
	SweepBoosts        = "boosts"
	SweepListings      = "listings"
	SweepSubscriptions = "subscriptions"
	SweepPayments      = "stale_payments"
)

// SweepBoosts clears the listing cache before deactivating each expired
// boost. A failed cache write leaves the boost active so the next pass picks
// it up again. A second phase clears caches that outlived their boost row.
func (u *reconcileUC) SweepBoosts(ctx context.Context, now time.Time) (ucport.SweepReport, error) {
	rep := ucport.SweepReport{Sweep: SweepBoosts}
	expired, err := u.boosts.ListExpiredActive(ctx, repository.NoTX, now, u.opts.BatchSize)
	if err != nil {
		return rep, err
	}
	rep.Scanned = len(expired)
	for _, b := range expired {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if _, err := u.listings.ClearExpiredBoost(ctx, repository.NoTX, b.ListingID, now); err != nil {
			u.itemFailed(&rep, err, "listing_id", b.ListingID)
			continue
		}
		changed, err := u.boosts.Deactivate(ctx, repository.NoTX, b.ID)
		if err != nil {
			u.itemFailed(&rep, err, "boost_id", b.ID)
			continue
		}
		if changed {
			rep.Changed++
			metrics.IncSweepItem(SweepBoosts, "deactivated")
			u.notify(ctx, b.SellerID, "notify.boost_ended.title", "notify.boost_ended.body")
		}
	}

	stale, err := u.listings.ListExpiredBoostCache(ctx, repository.NoTX, now, u.opts.BatchSize)
	if err != nil {
		return rep, err
	}
	rep.Scanned += len(stale)
	for _, l := range stale {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		changed, err := u.listings.ClearExpiredBoost(ctx, repository.NoTX, l.ID, now)
		if err != nil {
			u.itemFailed(&rep, err, "listing_id", l.ID)
			continue
		}
		if changed {
			rep.Changed++
			metrics.IncSweepItem(SweepBoosts, "cache_cleared")
		}
	}
	u.logReport(rep)
	return rep, nil
}

func (u *reconcileUC) SweepListings(ctx context.Context, now time.Time) (ucport.SweepReport, error) {
	rep := ucport.SweepReport{Sweep: SweepListings}
	expired, err := u.listings.ListExpiredActive(ctx, repository.NoTX, now, u.opts.BatchSize)
	if err != nil {
		return rep, err
	}
	rep.Scanned = len(expired)
	for _, l := range expired {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		changed, err := u.listings.MarkPassive(ctx, repository.NoTX, l.ID)
		if err != nil {
			u.itemFailed(&rep, err, "listing_id", l.ID)
			continue
		}
		if changed {
			rep.Changed++
			metrics.IncSweepItem(SweepListings, "deactivated")
			u.notify(ctx, l.SellerID, "notify.listing_expired.title", "notify.listing_expired.body", l.Title)
		}
	}
	u.logReport(rep)
	return rep, nil
}

func (u *reconcileUC) SweepSubscriptions(ctx context.Context, now time.Time) (ucport.SweepReport, error) {
	rep := ucport.SweepReport{Sweep: SweepSubscriptions}
	expired, err := u.subs.ListExpiredActive(ctx, repository.NoTX, now, u.opts.BatchSize)
	if err != nil {
		return rep, err
	}
	rep.Scanned = len(expired)
	for _, s := range expired {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if _, err := u.users.ClearExpiredPlan(ctx, repository.NoTX, s.UserID, now); err != nil {
			u.itemFailed(&rep, err, "user_id", s.UserID)
			continue
		}
		changed, err := u.subs.Deactivate(ctx, repository.NoTX, s.ID)
		if err != nil {
			u.itemFailed(&rep, err, "subscription_id", s.ID)
			continue
		}
		if changed {
			rep.Changed++
			metrics.IncSweepItem(SweepSubscriptions, "deactivated")
		}
	}
	u.logReport(rep)
	return rep, nil
}

func (u *reconcileUC) SweepStalePayments(ctx context.Context, now time.Time) (ucport.SweepReport, error) {
	rep := ucport.SweepReport{Sweep: SweepPayments}
	cutoff := now.Add(-u.opts.StaleAfter)
	for _, status := range []model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusProcessing} {
		stale, err := u.payments.ListStale(ctx, repository.NoTX, status, cutoff, u.opts.BatchSize)
		if err != nil {
			return rep, err
		}
		rep.Scanned += len(stale)
		for _, p := range stale {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			outcome, err := u.payUC.ResolveStale(ctx, p)
			if err != nil {
				u.itemFailed(&rep, err, "payment_id", p.ID)
				continue
			}
			rep.Changed++
			metrics.IncSweepItem(SweepPayments, string(outcome))
			u.log.Info().Str("payment_id", p.ID).Str("was", string(p.Status)).Str("outcome", string(outcome)).Msg("stale payment resolved")
		}
	}
	u.logReport(rep)
	return rep, nil
}

func (u *reconcileUC) itemFailed(rep *ucport.SweepReport, err error, key, id string) {
	rep.Failed++
	metrics.IncSweepItem(rep.Sweep, "error")
	u.log.Error().Err(err).Str("sweep", rep.Sweep).Str(key, id).Msg("sweep item skipped")
}

func (u *reconcileUC) notify(ctx context.Context, userID, titleKey, bodyKey string, args ...interface{}) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, userID, u.msgs.T(titleKey), u.msgs.T(bodyKey, args...)); err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("notification not delivered")
	}
}

func (u *reconcileUC) logReport(rep ucport.SweepReport) {
	if rep.Scanned == 0 {
		return
	}
	u.log.Info().
		Str("sweep", rep.Sweep).
		Int("scanned", rep.Scanned).
		Int("changed", rep.Changed).
		Int("failed", rep.Failed).
		Msg("sweep finished")
}
