package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "ACTIVE"
	ListingStatusPassive ListingStatus = "PASSIVE"
)

// Listing carries the denormalized boost cache mirroring the single active
// ListingBoost. Only the fields the billing core reads or writes are mapped.
type Listing struct {
	ID             string
	SellerID       string
	Title          string
	Price          decimal.Decimal
	Status         ListingStatus
	ExpiresAt      *time.Time
	IsBoosted      bool
	BoostExpiresAt *time.Time
	CreatedAt      time.Time
}

func (l *Listing) IsZero() bool { return l == nil || l.ID == "" }

func (l *Listing) OwnedBy(userID string) bool { return l != nil && l.SellerID == userID }
