package repository

import (
	"context"
	"time"

	"github.com/myagiz61/backend/internal/domain/model"
)

// SubscriptionRepository is the membership half of the entitlement ledger.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	FindByTransaction(ctx context.Context, tx Tx, productID, transactionID string) (*model.Subscription, error)
	// DeactivateActiveByUser closes every active subscription of the user.
	DeactivateActiveByUser(ctx context.Context, tx Tx, userID string) (int64, error)
	ListExpiredActive(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	// Deactivate only ever writes is_active=false.
	Deactivate(ctx context.Context, tx Tx, id string) (bool, error)
}

// BoostRepository is the listing-boost half of the entitlement ledger.
type BoostRepository interface {
	Save(ctx context.Context, tx Tx, b *model.ListingBoost) error
	FindActiveByListing(ctx context.Context, tx Tx, listingID string) (*model.ListingBoost, error)
	FindByTransaction(ctx context.Context, tx Tx, productID, transactionID string) (*model.ListingBoost, error)
	DeactivateActiveByListing(ctx context.Context, tx Tx, listingID string) (int64, error)
	ListExpiredActive(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.ListingBoost, error)
	Deactivate(ctx context.Context, tx Tx, id string) (bool, error)
}
