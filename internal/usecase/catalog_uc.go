// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

const (
	PurchaseTypePremium = "premium"
	PurchaseTypeBoost   = "boost"
)

// PurchaseRequest is what a buyer asks to pay for.
type PurchaseRequest struct {
	Type      string
	Plan      string
	Duration  string
	ListingID string
	Platform  model.Platform
}

type QuoteProduct struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type QuoteMeta struct {
	ListingID    string          `json:"listingId"`
	ListingTitle string          `json:"listingTitle"`
	ListingPrice decimal.Decimal `json:"listingPrice"`
}

// Quote is the read-only answer to a preview.
type Quote struct {
	Type    string       `json:"type"`
	Product QuoteProduct `json:"product"`
	Meta    *QuoteMeta   `json:"meta,omitempty"`
}

type CatalogUseCase interface {
	ListMemberships(ctx context.Context) ([]*model.Package, error)
	ListBoosts(ctx context.Context) ([]*model.Package, error)
	// Resolve maps a purchase request to an active catalog package.
	Resolve(ctx context.Context, req PurchaseRequest) (*model.Package, error)
	Preview(ctx context.Context, req PurchaseRequest) (*Quote, error)
	// Seed upserts the default catalog.
	Seed(ctx context.Context) error
}

type catalogUC struct {
	packages repository.PackageRepository
	listings repository.ListingRepository
	log      *zerolog.Logger
}

func NewCatalogUseCase(packages repository.PackageRepository, listings repository.ListingRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{packages: packages, listings: listings, log: &l}
}

func (u *catalogUC) ListMemberships(ctx context.Context) ([]*model.Package, error) {
	return u.packages.ListActiveByKind(ctx, repository.NoTX, model.PackageKindMembership)
}

func (u *catalogUC) ListBoosts(ctx context.Context) ([]*model.Package, error) {
	return u.packages.ListActiveByKind(ctx, repository.NoTX, model.PackageKindBoost)
}

func (u *catalogUC) Resolve(ctx context.Context, req PurchaseRequest) (*model.Package, error) {
	var (
		name string
		kind model.PackageKind
	)
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case PurchaseTypePremium:
		if strings.TrimSpace(req.Plan) == "" {
			return nil, domain.Validation("PLAN_REQUIRED", "plan is required for premium purchases")
		}
		name, kind = strings.TrimSpace(req.Plan), model.PackageKindMembership
	case PurchaseTypeBoost:
		if req.Duration == "" || req.ListingID == "" {
			return nil, domain.Validation("BOOST_FIELDS_REQUIRED", "duration and listingId are required for boosts")
		}
		n, ok := model.BoostPackageForDuration(req.Duration)
		if !ok {
			return nil, domain.Validation("INVALID_DURATION", "unknown boost duration "+req.Duration)
		}
		name, kind = n, model.PackageKindBoost
	case "":
		return nil, domain.Validation("TYPE_REQUIRED", "payment type is required")
	default:
		return nil, domain.Validation("INVALID_TYPE", "unknown payment type "+req.Type)
	}

	pkg, err := u.packages.FindByName(ctx, repository.NoTX, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validation("UNKNOWN_PACKAGE", "package "+name+" not found")
		}
		return nil, err
	}
	if pkg.Kind != kind || !pkg.IsActive {
		return nil, domain.Validation("UNKNOWN_PACKAGE", "package "+name+" not found")
	}
	return pkg, nil
}

func (u *catalogUC) Preview(ctx context.Context, req PurchaseRequest) (*Quote, error) {
	pkg, err := u.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	q := &Quote{
		Type: strings.ToLower(req.Type),
		Product: QuoteProduct{
			Name:     pkg.DisplayName(),
			Price:    pkg.Price,
			Currency: model.Currency,
		},
	}
	if pkg.Kind == model.PackageKindBoost {
		l, err := u.listings.FindByID(ctx, repository.NoTX, req.ListingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Validation("LISTING_NOT_FOUND", "listing "+req.ListingID+" not found")
			}
			return nil, err
		}
		q.Meta = &QuoteMeta{ListingID: l.ID, ListingTitle: l.Title, ListingPrice: l.Price}
	}
	return q, nil
}

// DefaultCatalog is the catalog seeded on a fresh database.
func DefaultCatalog() []*model.Package {
	type row struct {
		name  string
		kind  model.PackageKind
		days  int
		price string
	}
	rows := []row{
		{"basic", model.PackageKindMembership, 30, "0"},
		{"standard", model.PackageKindMembership, 30, "199"},
		{"pro", model.PackageKindMembership, 30, "399"},
		{"boost_1_day", model.PackageKindBoost, 1, "49"},
		{"boost_1_week", model.PackageKindBoost, 7, "149"},
		{"boost_1_month", model.PackageKindBoost, 30, "299"},
	}
	out := make([]*model.Package, 0, len(rows))
	for _, r := range rows {
		p, _ := model.NewPackage(uuid.NewString(), r.name, r.kind, r.days, decimal.RequireFromString(r.price))
		out = append(out, p)
	}
	return out
}

func (u *catalogUC) Seed(ctx context.Context) error {
	for _, p := range DefaultCatalog() {
		if err := u.packages.Save(ctx, repository.NoTX, p); err != nil {
			return err
		}
		u.log.Info().Str("package", p.Name).Msg("catalog package seeded")
	}
	return nil
}
