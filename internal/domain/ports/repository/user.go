package repository

import (
	"context"
	"time"

	"github.com/myagiz61/backend/internal/domain/model"
)

// -----------------------------
// Users & listings (cache fields)
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	SetPlanCache(ctx context.Context, tx Tx, userID, plan string, expiresAt *time.Time) error
	// ClearExpiredPlan resets the cache to free only if it still mirrors a plan ending at or before now.
	ClearExpiredPlan(ctx context.Context, tx Tx, userID string, now time.Time) (bool, error)
}

type ListingRepository interface {
	Save(ctx context.Context, tx Tx, l *model.Listing) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Listing, error)
	SetBoostCache(ctx context.Context, tx Tx, listingID string, expiresAt time.Time) error
	// ClearExpiredBoost clears the cache unless it mirrors a boost still running after now.
	ClearExpiredBoost(ctx context.Context, tx Tx, listingID string, now time.Time) (bool, error)
	// ListExpiredBoostCache returns listings still flagged boosted after their cached expiry.
	ListExpiredBoostCache(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Listing, error)
	ListExpiredActive(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Listing, error)
	// MarkPassive moves an ACTIVE listing to PASSIVE.
	MarkPassive(ctx context.Context, tx Tx, id string) (bool, error)
	CountActiveBySeller(ctx context.Context, tx Tx, sellerID string) (int, error)
}

type NotificationRepository interface {
	Save(ctx context.Context, tx Tx, n *model.Notification) error
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, tx Tx, userID, id string) (bool, error)
}
