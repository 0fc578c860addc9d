package model

import (
	"context"
	"strings"
	"time"

	"github.com/myagiz61/backend/internal/domain"

	"github.com/shopspring/decimal"
)

// PackageKind is the closed set of purchasable product kinds.
type PackageKind string

const (
	PackageKindMembership PackageKind = "membership"
	PackageKindBoost      PackageKind = "boost"
)

// KindVisitor handles every package kind. Adding a kind adds a method here,
// so every dispatcher stops compiling until it handles the new kind.
type KindVisitor interface {
	Membership(ctx context.Context) error
	Boost(ctx context.Context) error
}

// Visit dispatches to the visitor method for k.
func (k PackageKind) Visit(ctx context.Context, v KindVisitor) error {
	switch k {
	case PackageKindMembership:
		return v.Membership(ctx)
	case PackageKindBoost:
		return v.Boost(ctx)
	}
	return domain.ErrUnknownPackageKind
}

func (k PackageKind) Valid() bool {
	return k == PackageKindMembership || k == PackageKindBoost
}

// Package is a purchasable product. A payment freezes its price in Payment.Amount.
type Package struct {
	ID           string
	Name         string // unique key, e.g. "pro", "boost_1_week"
	Kind         PackageKind
	DurationDays int
	Price        decimal.Decimal
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Package) IsZero() bool { return p == nil || p.ID == "" }

// NewPackage validates and constructs a package.
func NewPackage(id, name string, kind PackageKind, durationDays int, price decimal.Decimal) (*Package, error) {
	if id == "" || strings.TrimSpace(name) == "" || !kind.Valid() || durationDays <= 0 || price.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Package{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Kind:         kind,
		DurationDays: durationDays,
		Price:        price,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Duration is the grant length of the package.
func (p *Package) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// DisplayName is the product name shown to the buyer and sent to the gateway.
func (p *Package) DisplayName() string {
	switch p.Kind {
	case PackageKindMembership:
		return strings.ToUpper(p.Name) + " PREMIUM"
	case PackageKindBoost:
		return strings.ToUpper(strings.ReplaceAll(p.Name, "_", " "))
	}
	return p.Name
}

// Currency used for every catalog price.
const Currency = "TRY"

// BoostPackageForDuration maps a requested boost duration token to its package name.
func BoostPackageForDuration(duration string) (string, bool) {
	switch duration {
	case "24h":
		return "boost_1_day", true
	case "7d":
		return "boost_1_week", true
	case "30d":
		return "boost_1_month", true
	}
	return "", false
}
