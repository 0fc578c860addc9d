package model

import (
	"time"

	"github.com/myagiz61/backend/internal/domain"
)

type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Subscription grants premium membership to a user for one contiguous period.
// At most one subscription per user is active at any instant.
type Subscription struct {
	ID            string // UUID
	UserID        string
	PackageID     string
	PaymentID     *string // gateway/manual grants
	StartDate     time.Time
	EndDate       time.Time
	IsActive      bool
	Platform      Platform
	ProductID     string // store product id for mobile grants
	TransactionID string // store transaction id for mobile grants
	CreatedAt     time.Time
}

// NewSubscription creates an active subscription covering [start, end).
func NewSubscription(id, userID string, pkg *Package, start, end time.Time) (*Subscription, error) {
	if id == "" || userID == "" || pkg.IsZero() || !end.After(start) {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PackageID: pkg.ID,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		Platform:  PlatformWeb,
		CreatedAt: start,
	}, nil
}

// Expired reports whether the grant has run out at now.
func (s *Subscription) Expired(now time.Time) bool { return !s.EndDate.After(now) }
