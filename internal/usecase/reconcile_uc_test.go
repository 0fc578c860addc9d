//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

func TestReconcileUseCase_SweepBoosts(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 1)

	t.Run("should end expired boosts and clear the listing cache", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		listing := l.db.addListing("L1", "seller")
		end := now.Add(-time.Minute)
		b, _ := model.NewListingBoost("b1", listing, l.boostDay, end.Add(-24*time.Hour), end, model.BoostSourceIAP)
		l.db.putBoost(b)
		listing.IsBoosted, listing.BoostExpiresAt = true, &end
		_ = l.listings.Save(ctx, repository.NoTX, listing)

		// --- Act ---
		rep, err := l.reconcileUC().SweepBoosts(ctx, now)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if rep.Scanned != 1 || rep.Changed != 1 || rep.Failed != 0 {
			t.Errorf("unexpected report: %+v", rep)
		}
		if len(l.db.activeBoosts("L1")) != 0 {
			t.Error("boost must be inactive")
		}
		if got := l.db.listing("L1"); got.IsBoosted || got.BoostExpiresAt != nil {
			t.Errorf("listing cache not cleared: %+v", got)
		}
		if l.notifier.count() != 1 || l.notifier.Sent[0].UserID != "seller" {
			t.Errorf("expected the seller to be notified, got %+v", l.notifier.Sent)
		}
	})

	t.Run("should keep the cache of a listing boosted again meanwhile", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		listing := l.db.addListing("L1", "seller")
		old, _ := model.NewListingBoost("old", listing, l.boostDay, now.Add(-48*time.Hour), now.Add(-24*time.Hour), model.BoostSourceIAP)
		l.db.putBoost(old)
		fresh := now.Add(6 * 24 * time.Hour)
		listing.IsBoosted, listing.BoostExpiresAt = true, &fresh
		_ = l.listings.Save(ctx, repository.NoTX, listing)

		// --- Act ---
		if _, err := l.reconcileUC().SweepBoosts(ctx, now); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		// --- Assert ---
		if got := l.db.listing("L1"); !got.IsBoosted {
			t.Error("a concurrent purchase must not be undone")
		}
	})

	t.Run("should skip a failing record and continue with the rest", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		for _, id := range []string{"L1", "L2", "L3"} {
			listing := l.db.addListing(id, "seller")
			b, _ := model.NewListingBoost("b-"+id, listing, l.boostDay, now.Add(-48*time.Hour), now.Add(-time.Hour), model.BoostSourceIAP)
			l.db.putBoost(b)
		}
		orig := l.boosts
		l.boosts = &MockBoostRepo{db: l.db, DeactivateFunc: func(ctx context.Context, tx repository.Tx, id string) (bool, error) {
			if id == "b-L2" {
				return false, domain.ErrOperationFailed
			}
			return orig.Deactivate(ctx, tx, id)
		}}

		// --- Act ---
		rep, err := l.reconcileUC().SweepBoosts(ctx, now)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if rep.Scanned != 3 || rep.Changed != 2 || rep.Failed != 1 {
			t.Errorf("unexpected report: %+v", rep)
		}
		if len(l.db.activeBoosts("L2")) != 1 {
			t.Error("failed record must stay for the next pass")
		}
	})

	t.Run("should converge to no work on a second pass", func(t *testing.T) {
		l := newTestLedger(now)
		listing := l.db.addListing("L1", "seller")
		b, _ := model.NewListingBoost("b1", listing, l.boostDay, now.Add(-48*time.Hour), now.Add(-time.Hour), model.BoostSourceIAP)
		l.db.putBoost(b)
		sweeper := l.reconcileUC()

		_, _ = sweeper.SweepBoosts(ctx, now)
		rep, err := sweeper.SweepBoosts(ctx, now)

		if err != nil || rep.Scanned != 0 || rep.Changed != 0 {
			t.Fatalf("expected an idle second pass, got %+v / %v", rep, err)
		}
	})

	t.Run("should keep the boost active when the cache write fails and converge next pass", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		listing := l.db.addListing("L1", "seller")
		end := now.Add(-time.Minute)
		b, _ := model.NewListingBoost("b1", listing, l.boostDay, end.Add(-24*time.Hour), end, model.BoostSourceIAP)
		l.db.putBoost(b)
		listing.IsBoosted, listing.BoostExpiresAt = true, &end
		_ = l.listings.Save(ctx, repository.NoTX, listing)
		plain := &MockListingRepo{db: l.db}
		calls := 0
		l.listings.ClearExpiredBoostFunc = func(ctx context.Context, tx repository.Tx, listingID string, now time.Time) (bool, error) {
			calls++
			if calls == 1 {
				return false, domain.ErrOperationFailed
			}
			return plain.ClearExpiredBoost(ctx, tx, listingID, now)
		}
		sweeper := l.reconcileUC()

		// --- Act ---
		first, err := sweeper.SweepBoosts(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		afterFirst := len(l.db.activeBoosts("L1"))
		second, err := sweeper.SweepBoosts(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		third, _ := sweeper.SweepBoosts(ctx, now)

		// --- Assert ---
		if first.Failed == 0 || afterFirst != 1 {
			t.Errorf("first pass must fail the item and keep the boost active, got %+v / %d active", first, afterFirst)
		}
		if second.Changed != 1 || second.Failed != 0 {
			t.Errorf("second pass must finish the boost, got %+v", second)
		}
		if len(l.db.activeBoosts("L1")) != 0 {
			t.Error("boost must be inactive after the second pass")
		}
		if got := l.db.listing("L1"); got.IsBoosted || got.BoostExpiresAt != nil {
			t.Errorf("listing cache not cleared: %+v", got)
		}
		if third.Scanned != 0 || third.Changed != 0 {
			t.Errorf("expected an idle third pass, got %+v", third)
		}
		if l.notifier.count() != 1 {
			t.Errorf("expected one notification, got %d", l.notifier.count())
		}
	})

	t.Run("should clear a boosted cache left without an active boost", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		listing := l.db.addListing("L1", "seller")
		end := now.Add(-time.Hour)
		listing.IsBoosted, listing.BoostExpiresAt = true, &end
		_ = l.listings.Save(ctx, repository.NoTX, listing)
		live := l.db.addListing("L2", "seller")
		future := now.Add(time.Hour)
		live.IsBoosted, live.BoostExpiresAt = true, &future
		_ = l.listings.Save(ctx, repository.NoTX, live)

		// --- Act ---
		rep, err := l.reconcileUC().SweepBoosts(ctx, now)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if rep.Scanned != 1 || rep.Changed != 1 {
			t.Errorf("unexpected report: %+v", rep)
		}
		if got := l.db.listing("L1"); got.IsBoosted || got.BoostExpiresAt != nil {
			t.Errorf("stale cache not cleared: %+v", got)
		}
		if !l.db.listing("L2").IsBoosted {
			t.Error("a running boost cache must stay")
		}
		if l.notifier.count() != 0 {
			t.Errorf("cache cleanup must not notify, got %d", l.notifier.count())
		}
	})
}

func TestReconcileUseCase_SweepListings(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 1)

	t.Run("should pass expired listings and leave live ones", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		expired := l.db.addListing("old", "seller")
		past := now.Add(-time.Hour)
		expired.ExpiresAt = &past
		_ = l.listings.Save(ctx, repository.NoTX, expired)
		live := l.db.addListing("live", "seller")
		future := now.Add(time.Hour)
		live.ExpiresAt = &future
		_ = l.listings.Save(ctx, repository.NoTX, live)

		// --- Act ---
		rep, err := l.reconcileUC().SweepListings(ctx, now)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if rep.Changed != 1 {
			t.Errorf("expected one listing changed, got %+v", rep)
		}
		if l.db.listing("old").Status != model.ListingStatusPassive {
			t.Error("expired listing must be passive")
		}
		if l.db.listing("live").Status != model.ListingStatusActive {
			t.Error("live listing must stay active")
		}
		if l.notifier.count() != 1 {
			t.Errorf("expected one notification, got %d", l.notifier.count())
		}
	})
}

func TestReconcileUseCase_SweepSubscriptions(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 1)

	t.Run("should end expired subscriptions and reset the plan cache", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		l.db.addUser("u1")
		start, end := now.AddDate(0, 0, -30), now.Add(-time.Second)
		s, _ := model.NewSubscription("s1", "u1", l.pro, start, end)
		l.db.putSub(s)
		_ = l.users.SetPlanCache(ctx, repository.NoTX, "u1", "pro", &end)

		// --- Act ---
		rep, err := l.reconcileUC().SweepSubscriptions(ctx, now)

		// --- Assert ---
		if err != nil || rep.Changed != 1 {
			t.Fatalf("expected one change, got %+v / %v", rep, err)
		}
		if len(l.db.activeSubs("u1")) != 0 {
			t.Error("subscription must be inactive")
		}
		if u := l.db.user("u1"); u.Plan != model.PlanFree || u.PlanExpiresAt != nil {
			t.Errorf("plan cache not reset: %+v", u)
		}
	})

	t.Run("should not clear a plan renewed meanwhile", func(t *testing.T) {
		l := newTestLedger(now)
		l.db.addUser("u1")
		s, _ := model.NewSubscription("s1", "u1", l.pro, now.AddDate(0, 0, -30), now.Add(-time.Second))
		l.db.putSub(s)
		renewed := now.AddDate(0, 0, 30)
		_ = l.users.SetPlanCache(ctx, repository.NoTX, "u1", "standard", &renewed)

		_, _ = l.reconcileUC().SweepSubscriptions(ctx, now)

		if u := l.db.user("u1"); u.Plan != "standard" {
			t.Errorf("renewed plan overwritten: %s", u.Plan)
		}
	})

	t.Run("should keep the subscription active when the plan reset fails and converge next pass", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		l.db.addUser("u1")
		end := now.Add(-time.Second)
		s, _ := model.NewSubscription("s1", "u1", l.pro, now.AddDate(0, 0, -30), end)
		l.db.putSub(s)
		_ = l.users.SetPlanCache(ctx, repository.NoTX, "u1", "pro", &end)
		plain := &MockUserRepo{db: l.db}
		calls := 0
		l.users.ClearExpiredPlanFunc = func(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error) {
			calls++
			if calls == 1 {
				return false, domain.ErrOperationFailed
			}
			return plain.ClearExpiredPlan(ctx, tx, userID, now)
		}
		sweeper := l.reconcileUC()

		// --- Act ---
		first, _ := sweeper.SweepSubscriptions(ctx, now)
		afterFirst := len(l.db.activeSubs("u1"))
		second, err := sweeper.SweepSubscriptions(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		third, _ := sweeper.SweepSubscriptions(ctx, now)

		// --- Assert ---
		if first.Failed != 1 || first.Changed != 0 || afterFirst != 1 {
			t.Errorf("first pass must fail the item and keep the subscription, got %+v / %d active", first, afterFirst)
		}
		if second.Changed != 1 || second.Failed != 0 {
			t.Errorf("second pass must finish the subscription, got %+v", second)
		}
		if u := l.db.user("u1"); u.Plan != model.PlanFree || u.PlanExpiresAt != nil {
			t.Errorf("plan cache not reset: %+v", u)
		}
		if third.Scanned != 0 {
			t.Errorf("expected an idle third pass, got %+v", third)
		}
	})
}

func TestReconcileUseCase_SweepStalePayments(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 1)

	t.Run("should settle abandoned payments by their stage", func(t *testing.T) {
		// --- Arrange ---
		l := newTestLedger(now)
		l.db.addUser("u1")
		l.db.addUser("u2")
		old := now.Add(-2 * time.Hour)

		abandoned := l.pendingPayment("u1", l.standard, nil, "")
		abandoned.UpdatedAt = old
		l.db.putPayment(abandoned)

		paid := l.pendingPayment("u2", l.pro, nil, "tok-paid")
		paid.UpdatedAt = old
		l.db.putPayment(paid)

		crashed := l.processingPayment("u1", l.pro, nil)
		crashed.Provider = model.PaymentProviderManual
		crashed.UpdatedAt = old
		l.db.putPayment(crashed)

		fresh := l.pendingPayment("u1", l.boostDay, nil, "")

		l.gateway.RetrieveResultFunc = func(ctx context.Context, token string) (*model.GatewayResult, error) {
			return &model.GatewayResult{ConversationID: paid.ID, Status: model.GatewayStatusSuccess}, nil
		}

		// --- Act ---
		rep, err := l.reconcileUC().SweepStalePayments(ctx, now)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if rep.Scanned != 3 || rep.Failed != 0 {
			t.Errorf("unexpected report: %+v", rep)
		}
		if got := l.db.payment(abandoned.ID); got.Status != model.PaymentStatusFailed || got.FailReason != model.FailReasonCheckoutAbandon {
			t.Errorf("abandoned checkout: %s/%s", got.Status, got.FailReason)
		}
		if got := l.db.payment(paid.ID); got.Status != model.PaymentStatusSuccess {
			t.Errorf("paid checkout must be granted, got %s", got.Status)
		}
		if got := l.db.payment(crashed.ID); got.Status != model.PaymentStatusSuccess {
			t.Errorf("crashed grant must resume, got %s", got.Status)
		}
		if got := l.db.payment(fresh.ID); got.Status != model.PaymentStatusPending {
			t.Errorf("fresh payment must be left alone, got %s", got.Status)
		}
		if len(l.db.activeSubs("u2")) != 1 {
			t.Error("expected u2 to hold a subscription")
		}
	})
}
