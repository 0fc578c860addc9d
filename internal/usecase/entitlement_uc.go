// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

type EntitlementStatus struct {
	IsPremium     bool       `json:"isPremium"`
	Plan          string     `json:"plan"`
	PlanExpiresAt *time.Time `json:"planExpiresAt"`
}

type ListingQuotaStatus struct {
	Plan      string `json:"plan"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Unlimited bool   `json:"unlimited"`
}

type EntitlementUseCase interface {
	// Status reads the ledger and resynchronizes the user's plan cache when it drifted.
	Status(ctx context.Context, userID string) (*EntitlementStatus, error)
	// CheckListingQuota fails with a forbidden fault when the seller's plan is exhausted.
	CheckListingQuota(ctx context.Context, userID string) (*ListingQuotaStatus, error)
}

type entitlementUC struct {
	users    repository.UserRepository
	subs     repository.SubscriptionRepository
	packages repository.PackageRepository
	listings repository.ListingRepository
	now      func() time.Time
	log      *zerolog.Logger
}

func NewEntitlementUseCase(
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	packages repository.PackageRepository,
	listings repository.ListingRepository,
	logger *zerolog.Logger,
) *entitlementUC {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	return &entitlementUC{users: users, subs: subs, packages: packages, listings: listings, now: time.Now, log: &l}
}

func (u *entitlementUC) WithClock(now func() time.Time) *entitlementUC {
	u.now = now
	return u
}

func (u *entitlementUC) Status(ctx context.Context, userID string) (*EntitlementStatus, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		sub = nil
	case err != nil:
		return nil, err
	case sub.Expired(u.now()):
		sub = nil
	}

	plan := model.PlanFree
	if sub != nil {
		pkg, err := u.packages.FindByID(ctx, repository.NoTX, sub.PackageID)
		if err != nil {
			return nil, err
		}
		plan = pkg.Name
	}

	if !user.MirrorsSubscription(plan, sub) {
		var expires *time.Time
		if sub != nil {
			end := sub.EndDate
			expires = &end
		}
		if err := u.users.SetPlanCache(ctx, repository.NoTX, userID, plan, expires); err != nil {
			u.log.Error().Err(err).Str("user_id", userID).Msg("plan cache resync failed")
		} else {
			metrics.IncCacheResync("user_plan")
			u.log.Info().Str("user_id", userID).Str("cached", user.Plan).Str("ledger", plan).Msg("plan cache resynced")
		}
	}

	st := &EntitlementStatus{Plan: plan}
	if sub != nil {
		end := sub.EndDate
		st.IsPremium = true
		st.PlanExpiresAt = &end
	}
	return st, nil
}

func (u *entitlementUC) CheckListingQuota(ctx context.Context, userID string) (*ListingQuotaStatus, error) {
	st, err := u.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, limited := model.ListingQuota(st.Plan)
	out := &ListingQuotaStatus{Plan: st.Plan, Limit: limit, Unlimited: !limited}
	if !limited {
		return out, nil
	}
	used, err := u.listings.CountActiveBySeller(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	out.Used = used
	if used >= limit {
		return out, domain.Forbidden("PLAN_LIMIT_REACHED", fmt.Sprintf("plan limit reached (%d listings)", limit))
	}
	return out, nil
}
