// File: internal/usecase/success_applier.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// Compile-time check
var _ SuccessApplier = (*successApplier)(nil)

// Messages renders user-facing texts by key.
type Messages interface {
	T(key string, args ...interface{}) string
}

// GrantRequest is everything the applier needs to grant one entitlement.
type GrantRequest struct {
	UserID    string
	Package   *model.Package
	ListingID string
	PaymentID *string

	// End overrides now+duration; receipts are authoritative about their expiry.
	Start *time.Time
	End   *time.Time

	Source        model.BoostSource
	Platform      model.Platform
	ProductID     string
	TransactionID string
}

// Grant is the ledger record created by one successful application.
type Grant struct {
	Kind         model.PackageKind
	PackageName  string
	Subscription *model.Subscription
	Boost        *model.ListingBoost
	EndDate      time.Time
	// Duplicate is set when the payment or transaction was already applied.
	Duplicate bool

	source string
	notes  []pendingNote
}

type pendingNote struct {
	userID, title, message string
}

type SuccessApplier interface {
	// ApplyPayment grants the entitlement of a processing payment and marks it success.
	// A payment already in success is a no-op reported as Duplicate.
	ApplyPayment(ctx context.Context, paymentID string, raw json.RawMessage) (*Grant, error)
	// ApplyReceipt grants a verified store purchase, deduplicated by (productID, transactionID).
	ApplyReceipt(ctx context.Context, req GrantRequest) (*Grant, error)
}

var errDuplicateGrant = errors.New("grant already recorded")

type successApplier struct {
	tm       repository.TransactionManager
	locks    repository.AdvisoryLocker
	packages repository.PackageRepository
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	boosts   repository.BoostRepository
	users    repository.UserRepository
	listings repository.ListingRepository
	notifier adapter.Notifier
	msgs     Messages
	now      func() time.Time
	log      *zerolog.Logger
}

func NewSuccessApplier(
	tm repository.TransactionManager,
	locks repository.AdvisoryLocker,
	packages repository.PackageRepository,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	boosts repository.BoostRepository,
	users repository.UserRepository,
	listings repository.ListingRepository,
	notifier adapter.Notifier,
	msgs Messages,
	logger *zerolog.Logger,
) *successApplier {
	l := logger.With().Str("component", "SuccessApplier").Logger()
	return &successApplier{
		tm: tm, locks: locks, packages: packages, payments: payments,
		subs: subs, boosts: boosts, users: users, listings: listings,
		notifier: notifier, msgs: msgs, now: time.Now, log: &l,
	}
}

// WithClock replaces the time source.
func (a *successApplier) WithClock(now func() time.Time) *successApplier {
	a.now = now
	return a
}

func (a *successApplier) ApplyPayment(ctx context.Context, paymentID string, raw json.RawMessage) (*Grant, error) {
	var grant *Grant
	err := a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := a.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Integrity("PAYMENT_NOT_FOUND", "payment "+paymentID+" does not exist")
			}
			return err
		}
		if p.Status == model.PaymentStatusSuccess {
			grant = &Grant{Duplicate: true}
			return nil
		}
		if p.Status != model.PaymentStatusProcessing {
			return domain.ErrInvalidTransition
		}

		pkg, err := a.resolvePackage(ctx, tx, p.PackageID)
		if err != nil {
			return err
		}
		req := GrantRequest{
			UserID:        p.UserID,
			Package:       pkg,
			PaymentID:     &p.ID,
			Platform:      model.Platform(p.Meta.Platform),
			Source:        model.BoostSourceIyzico,
			ProductID:     string(p.Provider),
			TransactionID: paymentTransactionID(p),
		}
		if p.Provider == model.PaymentProviderManual {
			req.Source = model.BoostSourceManual
		}
		if p.HasListing() {
			req.ListingID = *p.ListingID
		}

		g, err := a.grant(ctx, tx, req)
		if errors.Is(err, errDuplicateGrant) {
			a.log.Warn().Str("payment_id", p.ID).Str("transaction_id", req.TransactionID).Msg("grant already recorded for payment")
			g, err = &Grant{Kind: pkg.Kind, PackageName: pkg.Name, Duplicate: true}, nil
		}
		if err != nil {
			return err
		}
		ok, err := a.payments.MarkSucceeded(ctx, tx, p.ID, raw)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		grant = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !grant.Duplicate {
		metrics.IncPayment(string(model.PaymentStatusSuccess))
	}
	a.emit(ctx, grant)
	return grant, nil
}

func (a *successApplier) ApplyReceipt(ctx context.Context, req GrantRequest) (*Grant, error) {
	if req.Package.IsZero() || req.UserID == "" || req.TransactionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var grant *Grant
	err := a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.locks.LockXact(ctx, tx, "receipt:"+req.ProductID+":"+req.TransactionID); err != nil {
			return err
		}
		g, err := a.grant(ctx, tx, req)
		if err != nil {
			return err
		}
		grant = g
		return nil
	})
	if errors.Is(err, errDuplicateGrant) {
		return &Grant{Kind: req.Package.Kind, PackageName: req.Package.Name, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	a.emit(ctx, grant)
	return grant, nil
}

// paymentTransactionID keys a payment grant by the gateway token, or by the
// payment itself when no session was opened.
func paymentTransactionID(p *model.Payment) string {
	if p.ProviderToken != "" {
		return p.ProviderToken
	}
	return p.ID
}

func (a *successApplier) resolvePackage(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	pkg, err := a.packages.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Integrity("PACKAGE_NOT_FOUND", "package "+id+" referenced by payment does not exist")
		}
		return nil, err
	}
	return pkg, nil
}

// grant writes the ledger record, then the cache fields. The caller writes
// the terminal marker last.
func (a *successApplier) grant(ctx context.Context, tx repository.Tx, req GrantRequest) (*Grant, error) {
	start := a.now()
	if req.Start != nil {
		start = *req.Start
	}
	v := &grantVisitor{a: a, tx: tx, req: req, start: start}
	if err := req.Package.Kind.Visit(ctx, v); err != nil {
		return nil, err
	}
	v.out.source = string(req.Source)
	return v.out, nil
}

func (a *successApplier) endDate(req GrantRequest, start time.Time) (time.Time, error) {
	end := start.Add(req.Package.Duration())
	if req.End != nil {
		end = *req.End
	}
	if !end.After(start) {
		return time.Time{}, domain.Validation("EXPIRED_GRANT", "grant ends before it starts")
	}
	return end, nil
}

// emit delivers notifications after commit; failures are logged only.
func (a *successApplier) emit(ctx context.Context, g *Grant) {
	if g == nil || g.Duplicate {
		return
	}
	metrics.IncEntitlement(string(g.Kind), g.source)
	if a.notifier == nil {
		return
	}
	for _, n := range g.notes {
		if err := a.notifier.Notify(ctx, n.userID, n.title, n.message); err != nil {
			a.log.Warn().Err(err).Str("user_id", n.userID).Msg("notification not delivered")
		}
	}
}

// grantVisitor dispatches the grant on the package kind.
type grantVisitor struct {
	a     *successApplier
	tx    repository.Tx
	req   GrantRequest
	start time.Time
	out   *Grant
}

var _ model.KindVisitor = (*grantVisitor)(nil)

func (v *grantVisitor) Membership(ctx context.Context) error {
	a, req := v.a, v.req
	if req.TransactionID != "" {
		if _, err := a.subs.FindByTransaction(ctx, v.tx, req.ProductID, req.TransactionID); err == nil {
			return errDuplicateGrant
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	end, err := a.endDate(req, v.start)
	if err != nil {
		return err
	}

	if _, err := a.subs.DeactivateActiveByUser(ctx, v.tx, req.UserID); err != nil {
		return err
	}
	sub, err := model.NewSubscription(uuid.NewString(), req.UserID, req.Package, v.start, end)
	if err != nil {
		return err
	}
	sub.PaymentID = req.PaymentID
	if req.Platform != "" {
		sub.Platform = req.Platform
	}
	sub.ProductID = req.ProductID
	sub.TransactionID = req.TransactionID
	if err := a.subs.Save(ctx, v.tx, sub); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return errDuplicateGrant
		}
		return err
	}
	if err := a.users.SetPlanCache(ctx, v.tx, req.UserID, req.Package.Name, &end); err != nil {
		return err
	}

	v.out = &Grant{
		Kind:         model.PackageKindMembership,
		PackageName:  req.Package.Name,
		Subscription: sub,
		EndDate:      end,
		notes: []pendingNote{{
			userID:  req.UserID,
			title:   a.msgs.T("notify.membership_active.title"),
			message: a.msgs.T("notify.membership_active.body", req.Package.Name, end.Format("02.01.2006")),
		}},
	}
	return nil
}

func (v *grantVisitor) Boost(ctx context.Context) error {
	a, req := v.a, v.req
	if req.ListingID == "" {
		return domain.Integrity("BOOST_LISTING_MISSING", "boost grant has no target listing")
	}
	if req.TransactionID != "" {
		if _, err := a.boosts.FindByTransaction(ctx, v.tx, req.ProductID, req.TransactionID); err == nil {
			return errDuplicateGrant
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	listing, err := a.listings.FindByID(ctx, v.tx, req.ListingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Integrity("LISTING_NOT_FOUND", "boost target listing "+req.ListingID+" does not exist")
		}
		return err
	}
	end, err := a.endDate(req, v.start)
	if err != nil {
		return err
	}

	if _, err := a.boosts.DeactivateActiveByListing(ctx, v.tx, listing.ID); err != nil {
		return err
	}
	source := req.Source
	if source == "" {
		source = model.BoostSourceIAP
	}
	boost, err := model.NewListingBoost(uuid.NewString(), listing, req.Package, v.start, end, source)
	if err != nil {
		return err
	}
	boost.PaymentID = req.PaymentID
	boost.ProductID = req.ProductID
	boost.TransactionID = req.TransactionID
	if err := a.boosts.Save(ctx, v.tx, boost); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return errDuplicateGrant
		}
		return err
	}
	if err := a.listings.SetBoostCache(ctx, v.tx, listing.ID, end); err != nil {
		return err
	}

	v.out = &Grant{
		Kind:        model.PackageKindBoost,
		PackageName: req.Package.Name,
		Boost:       boost,
		EndDate:     end,
		notes: []pendingNote{{
			userID:  listing.SellerID,
			title:   a.msgs.T("notify.listing_boosted.title"),
			message: a.msgs.T("notify.listing_boosted.body", listing.Title, req.Package.DurationDays),
		}},
	}
	return nil
}
