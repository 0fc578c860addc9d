package model

import (
	"time"

	"github.com/myagiz61/backend/internal/domain"
)

type BoostSource string

const (
	BoostSourceMock   BoostSource = "mock"
	BoostSourceIAP    BoostSource = "iap"
	BoostSourceIyzico BoostSource = "iyzico"
	BoostSourceManual BoostSource = "manual"
)

// ListingBoost grants promoted visibility to one listing for a contiguous period.
// At most one boost per listing is active, and a (ProductID, TransactionID)
// pair activates at most one boost.
type ListingBoost struct {
	ID            string
	ListingID     string
	SellerID      string
	PackageID     string
	PaymentID     *string
	StartDate     time.Time
	EndDate       time.Time
	IsActive      bool
	Source        BoostSource
	ProductID     string
	TransactionID string
	CreatedAt     time.Time
}

func NewListingBoost(id string, listing *Listing, pkg *Package, start, end time.Time, source BoostSource) (*ListingBoost, error) {
	if id == "" || listing.IsZero() || pkg.IsZero() || !end.After(start) {
		return nil, domain.ErrInvalidArgument
	}
	return &ListingBoost{
		ID:        id,
		ListingID: listing.ID,
		SellerID:  listing.SellerID,
		PackageID: pkg.ID,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		Source:    source,
		CreatedAt: start,
	}, nil
}

func (b *ListingBoost) Expired(now time.Time) bool { return !b.EndDate.After(now) }
