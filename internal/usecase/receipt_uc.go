// File: internal/usecase/receipt_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// Compile-time check
var _ ReceiptUseCase = (*receiptUC)(nil)

// ReceiptResult is the JSON answer of the mobile verify surface.
type ReceiptResult struct {
	OK        bool       `json:"ok"`
	Mock      bool       `json:"mock,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty"`
	Type      string     `json:"type,omitempty"`
	Plan      string     `json:"plan,omitempty"`
	ListingID string     `json:"listingId,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type ReceiptUseCase interface {
	Verify(ctx context.Context, in model.ReceiptPurchase) (*ReceiptResult, error)
}

type ReceiptOptions struct {
	AllowMock     bool
	VerifyTimeout time.Duration
}

type receiptUC struct {
	packages repository.PackageRepository
	listings repository.ListingRepository
	verifier adapter.ReceiptVerifier
	applier  SuccessApplier
	opts     ReceiptOptions
	now      func() time.Time
	log      *zerolog.Logger
}

func NewReceiptUseCase(
	packages repository.PackageRepository,
	listings repository.ListingRepository,
	verifier adapter.ReceiptVerifier,
	applier SuccessApplier,
	opts ReceiptOptions,
	logger *zerolog.Logger,
) *receiptUC {
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "ReceiptUC").Logger()
	if opts.AllowMock {
		l.Warn().Msg("mock receipt bypass is enabled")
	}
	return &receiptUC{
		packages: packages, listings: listings, verifier: verifier,
		applier: applier, opts: opts, now: time.Now, log: &l,
	}
}

func (u *receiptUC) WithClock(now func() time.Time) *receiptUC {
	u.now = now
	return u
}

func (u *receiptUC) Verify(ctx context.Context, in model.ReceiptPurchase) (*ReceiptResult, error) {
	res, err := u.verify(ctx, in)
	switch {
	case err != nil:
		metrics.IncReceipt("error")
	case res.Duplicate:
		metrics.IncReceipt("duplicate")
	case res.Mock:
		metrics.IncReceipt("mock")
	default:
		metrics.IncReceipt("granted")
	}
	return res, err
}

func (u *receiptUC) verify(ctx context.Context, in model.ReceiptPurchase) (*ReceiptResult, error) {
	in.ReceiptData = strings.TrimSpace(in.ReceiptData)
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ReceiptData == "" || in.ProductID == "" {
		return nil, domain.Validation("RECEIPT_FIELDS_REQUIRED", "receiptData and productId are required")
	}
	product, ok := model.LookupStoreProduct(in.ProductID)
	if !ok {
		return nil, domain.Validation("INVALID_PRODUCT", "unknown productId "+in.ProductID)
	}
	if product.Kind == model.PackageKindBoost && in.ListingID == "" {
		return nil, domain.Validation("LISTING_REQUIRED", "listingId is required for boost products")
	}

	pkg, err := u.packages.FindByName(ctx, repository.NoTX, product.PackageName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Integrity("PACKAGE_NOT_FOUND", "catalog has no package "+product.PackageName)
		}
		return nil, err
	}
	if product.Kind == model.PackageKindBoost {
		l, err := u.listings.FindByID(ctx, repository.NoTX, in.ListingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Validation("LISTING_NOT_FOUND", "listing "+in.ListingID+" not found")
			}
			return nil, err
		}
		if !l.OwnedBy(in.UserID) {
			return nil, domain.Forbidden("LISTING_NOT_OWNED", "cannot boost a listing you do not own")
		}
	}

	req := GrantRequest{
		UserID:    in.UserID,
		Package:   pkg,
		ListingID: in.ListingID,
		Platform:  in.Platform,
		ProductID: in.ProductID,
		Source:    model.BoostSourceIAP,
	}
	if req.Platform == "" {
		req.Platform = model.PlatformIOS
	}

	mock := u.opts.AllowMock && in.ReceiptData == model.MockReceiptSentinel
	if mock {
		req.Source = model.BoostSourceMock
		req.TransactionID = "mock-" + uuid.NewString()
		if product.Kind == model.PackageKindMembership {
			end := u.now().Add(model.MockMembershipDurationDays * 24 * time.Hour)
			req.End = &end
		}
	} else {
		latest, err := u.verifyWithStore(ctx, in.ReceiptData)
		if err != nil {
			return nil, err
		}
		if latest.ProductID != "" && latest.ProductID != in.ProductID {
			return nil, domain.Validation("PRODUCT_MISMATCH", "receipt does not cover "+in.ProductID)
		}
		req.TransactionID = latest.TransactionID
		if product.Kind == model.PackageKindMembership {
			if latest.ExpiresDate == nil {
				return nil, domain.Validation("RECEIPT_NO_EXPIRY", "subscription receipt has no expiry")
			}
			start := latest.PurchaseDate
			req.Start = &start
			req.End = latest.ExpiresDate
		}
	}

	grant, err := u.applier.ApplyReceipt(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &ReceiptResult{OK: true, Mock: mock}
	if product.Kind == model.PackageKindMembership {
		out.Type = "subscription"
		out.Plan = pkg.Name
	} else {
		out.Type = "boost"
		out.ListingID = in.ListingID
	}
	if grant.Duplicate {
		out.Duplicate = true
		out.Message = "purchase already applied"
		return out, nil
	}
	end := grant.EndDate
	out.EndDate = &end
	return out, nil
}

// verifyWithStore calls the production endpoint and retries once on the sandbox
// when the store reports a sandbox receipt.
func (u *receiptUC) verifyWithStore(ctx context.Context, receipt string) (*model.ReceiptTransaction, error) {
	vctx, cancel := context.WithTimeout(ctx, u.opts.VerifyTimeout)
	defer cancel()

	res, err := u.verifier.Verify(vctx, receipt, false)
	if err == nil && res.Status == model.ReceiptStatusSandboxInProd {
		res, err = u.verifier.Verify(vctx, receipt, true)
	}
	if err != nil {
		u.log.Error().Err(err).Msg("receipt verification unavailable")
		return nil, domain.Upstream("RECEIPT_UNAVAILABLE", "receipt could not be verified, please retry", err)
	}
	if res.Status != model.ReceiptStatusValid {
		u.log.Warn().Int("status", res.Status).RawJSON("provider", rawOrNull(res.Raw)).Msg("receipt rejected")
		return nil, domain.Validation("RECEIPT_INVALID", "receipt verification failed")
	}
	if res.Latest == nil {
		return nil, domain.Validation("RECEIPT_EMPTY", "receipt has no transactions")
	}
	return res.Latest, nil
}
