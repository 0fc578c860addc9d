// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PendingPayment struct {
	UserID    string
	PackageID string
	ListingID *string
	Amount    decimal.Decimal
	Provider  model.PaymentProvider
	Meta      model.PaymentMeta
}

type CheckoutInput struct {
	UserID   string
	ClientIP string
	Request  PurchaseRequest
}

type CheckoutOutput struct {
	PaymentID           string `json:"paymentId"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl,omitempty"`
}

// CallbackResult tells the transport layer where to send the browser.
type CallbackResult struct {
	Outcome   model.CallbackOutcome
	PaymentID string
}

type PaymentUseCase interface {
	// CreatePending opens a payment, or returns the user's open one for the same package.
	CreatePending(ctx context.Context, in PendingPayment) (*model.Payment, error)
	// Checkout creates the pending payment and opens a hosted checkout session.
	Checkout(ctx context.Context, in CheckoutInput) (*CheckoutOutput, error)
	// LockForProcessing returns nil when the payment was already handled.
	LockForProcessing(ctx context.Context, paymentID string) (*model.Payment, error)
	MarkFailed(ctx context.Context, paymentID, reason string, raw json.RawMessage) error
	MarkSucceeded(ctx context.Context, paymentID string, raw json.RawMessage) error
	HandleCallback(ctx context.Context, cb model.IncomingCallback) (*CallbackResult, error)

	InitManual(ctx context.Context, userID, packageName string) (*model.Payment, error)
	ConfirmManual(ctx context.Context, paymentID string) (*CallbackResult, error)

	// ResolveStale settles a payment abandoned in pending or processing.
	ResolveStale(ctx context.Context, p *model.Payment) (model.CallbackOutcome, error)
}

type PaymentOptions struct {
	CallbackURL    string
	GatewayTimeout time.Duration
	CheckoutLock   time.Duration
}

type paymentUC struct {
	payments repository.PaymentRepository
	packages repository.PackageRepository
	listings repository.ListingRepository
	users    repository.UserRepository
	catalog  CatalogUseCase
	applier  SuccessApplier
	gateway  adapter.PaymentGateway
	locker   adapter.Locker
	alerter  adapter.OpsAlerter
	opts     PaymentOptions
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	packages repository.PackageRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	catalog CatalogUseCase,
	applier SuccessApplier,
	gateway adapter.PaymentGateway,
	locker adapter.Locker,
	alerter adapter.OpsAlerter,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 15 * time.Second
	}
	if opts.CheckoutLock <= 0 {
		opts.CheckoutLock = 10 * time.Second
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments, packages: packages, listings: listings, users: users,
		catalog: catalog, applier: applier, gateway: gateway, locker: locker,
		alerter: alerter, opts: opts, log: &l,
	}
}

func (u *paymentUC) CreatePending(ctx context.Context, in PendingPayment) (*model.Payment, error) {
	p, _, err := u.createPending(ctx, in)
	return p, err
}

// createPending reports whether the returned payment was already open.
func (u *paymentUC) createPending(ctx context.Context, in PendingPayment) (*model.Payment, bool, error) {
	pkg, err := u.packages.FindByID(ctx, repository.NoTX, in.PackageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, domain.Validation("UNKNOWN_PACKAGE", "package "+in.PackageID+" not found")
		}
		return nil, false, err
	}
	if pkg.Kind == model.PackageKindBoost {
		if in.ListingID == nil || *in.ListingID == "" {
			return nil, false, domain.Validation("LISTING_REQUIRED", "boost purchases need a listing")
		}
		l, err := u.listings.FindByID(ctx, repository.NoTX, *in.ListingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, false, domain.Validation("LISTING_NOT_FOUND", "listing "+*in.ListingID+" not found")
			}
			return nil, false, err
		}
		if !l.OwnedBy(in.UserID) {
			return nil, false, domain.Forbidden("LISTING_NOT_OWNED", "cannot boost a listing you do not own")
		}
	} else {
		in.ListingID = nil
	}

	if u.locker != nil {
		key := fmt.Sprintf("checkout:%s:%s", in.UserID, in.PackageID)
		token, err := u.locker.TryLock(ctx, key, u.opts.CheckoutLock)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrLockBusy, key)
		}
		defer func() { _ = u.locker.Unlock(context.WithoutCancel(ctx), key, token) }()
	}

	existing, err := u.payments.FindPending(ctx, repository.NoTX, in.UserID, in.PackageID, in.ListingID)
	if err == nil {
		u.log.Info().Str("payment_id", existing.ID).Msg("reusing open pending payment")
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		PackageID: pkg.ID,
		ListingID: in.ListingID,
		Amount:    in.Amount,
		Currency:  model.Currency,
		Status:    model.PaymentStatusPending,
		Provider:  in.Provider,
		Meta:      in.Meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, false, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))
	return p, false, nil
}

func (u *paymentUC) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutOutput, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validation("USER_NOT_FOUND", "user "+in.UserID+" not found")
		}
		return nil, err
	}
	pkg, err := u.catalog.Resolve(ctx, in.Request)
	if err != nil {
		return nil, err
	}

	platform := in.Request.Platform
	if platform == "" {
		platform = model.PlatformWeb
	}
	pending := PendingPayment{
		UserID:    user.ID,
		PackageID: pkg.ID,
		Amount:    pkg.Price,
		Provider:  model.PaymentProviderGateway,
		Meta: model.PaymentMeta{
			Type:     strings.ToLower(in.Request.Type),
			Plan:     in.Request.Plan,
			Duration: in.Request.Duration,
			Platform: string(platform),
		},
	}
	if pkg.Kind == model.PackageKindBoost {
		lid := in.Request.ListingID
		pending.ListingID = &lid
	}
	p, reused, err := u.createPending(ctx, pending)
	if err != nil {
		return nil, err
	}
	if reused && p.ProviderToken != "" {
		return u.resumeSession(p)
	}

	price := p.Amount.StringFixed(2)
	req := model.CheckoutRequest{
		ConversationID: p.ID,
		Price:          price,
		Currency:       model.Currency,
		CallbackURL:    u.callbackURL(platform),
		Buyer: model.Buyer{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			IP:    in.ClientIP,
		},
		Item: model.BasketItem{
			ID:       pkg.ID,
			Name:     pkg.DisplayName(),
			Category: pending.Meta.Type,
			Price:    price,
		},
	}

	gctx, cancel := context.WithTimeout(ctx, u.opts.GatewayTimeout)
	defer cancel()
	started := time.Now()
	res, err := u.gateway.InitCheckout(gctx, req)
	metrics.ObserveGatewayCall(u.gateway.Name(), "init", started, err)
	if err != nil {
		reason := model.FailReasonInitError
		if f, ok := domain.FaultOf(err); ok && f.Code == model.FailReasonInitFailed {
			reason = model.FailReasonInitFailed
			if f.Message != "" {
				reason = f.Message
			}
		}
		// A reused payment may still be paid on the session another call opened.
		if !reused {
			if _, ferr := u.payments.MarkFailed(ctx, repository.NoTX, p.ID, model.PaymentStatusPending, reason, nil); ferr != nil {
				u.log.Error().Err(ferr).Str("payment_id", p.ID).Msg("could not fail payment after init error")
			} else {
				metrics.IncPayment(string(model.PaymentStatusFailed))
			}
		}
		u.log.Error().Err(err).Str("payment_id", p.ID).Str("reason", reason).Bool("reused", reused).Msg("checkout init failed")
		return nil, domain.Upstream("CHECKOUT_UNAVAILABLE", "payment could not be started, please retry", err)
	}
	bound, err := u.payments.SetSession(ctx, repository.NoTX, p.ID, res.Token, res.PaymentPageURL)
	if err != nil {
		return nil, err
	}
	if !bound {
		cur, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return nil, err
		}
		u.log.Warn().Str("payment_id", p.ID).Str("status", string(cur.Status)).Str("token", res.Token).Msg("checkout session not bound, payment moved on")
		if cur.Status == model.PaymentStatusPending && cur.ProviderToken != "" {
			return u.resumeSession(cur)
		}
		return nil, domain.Upstream("CHECKOUT_UNAVAILABLE", "payment could not be started, please retry",
			fmt.Errorf("payment %s is %s", cur.ID, cur.Status))
	}
	return &CheckoutOutput{
		PaymentID:           p.ID,
		CheckoutFormContent: res.CheckoutFormContent,
		PaymentPageURL:      res.PaymentPageURL,
	}, nil
}

// resumeSession hands back the hosted page already bound to an open payment.
func (u *paymentUC) resumeSession(p *model.Payment) (*CheckoutOutput, error) {
	if p.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: checkout %s", domain.ErrLockBusy, p.ID)
	}
	u.log.Info().Str("payment_id", p.ID).Msg("resuming bound checkout session")
	return &CheckoutOutput{PaymentID: p.ID, PaymentPageURL: p.CheckoutURL}, nil
}

func (u *paymentUC) callbackURL(platform model.Platform) string {
	cb, err := url.Parse(u.opts.CallbackURL)
	if err != nil {
		return u.opts.CallbackURL
	}
	q := cb.Query()
	q.Set("platform", string(platform))
	cb.RawQuery = q.Encode()
	return cb.String()
}

func (u *paymentUC) LockForProcessing(ctx context.Context, paymentID string) (*model.Payment, error) {
	p, err := u.payments.LockForProcessing(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		metrics.IncPayment(string(model.PaymentStatusProcessing))
	}
	return p, nil
}

func (u *paymentUC) MarkFailed(ctx context.Context, paymentID, reason string, raw json.RawMessage) error {
	ok, err := u.payments.MarkFailed(ctx, repository.NoTX, paymentID, model.PaymentStatusProcessing, reason, raw)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	metrics.IncPayment(string(model.PaymentStatusFailed))
	return nil
}

func (u *paymentUC) MarkSucceeded(ctx context.Context, paymentID string, raw json.RawMessage) error {
	ok, err := u.payments.MarkSucceeded(ctx, repository.NoTX, paymentID, raw)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	metrics.IncPayment(string(model.PaymentStatusSuccess))
	return nil
}

func (u *paymentUC) HandleCallback(ctx context.Context, cb model.IncomingCallback) (*CallbackResult, error) {
	res, err := u.handleCallback(ctx, cb)
	if res != nil {
		metrics.IncCallback(string(res.Outcome))
	}
	return res, err
}

func (u *paymentUC) handleCallback(ctx context.Context, cb model.IncomingCallback) (*CallbackResult, error) {
	token := strings.TrimSpace(cb.Token)
	if token == "" {
		return &CallbackResult{Outcome: model.CallbackMalformed}, nil
	}

	result, err := u.retrieve(ctx, token)
	if err != nil {
		u.log.Error().Err(err).Str("token", token).Msg("gateway retrieve failed")
		p, ferr := u.payments.FindByToken(ctx, repository.NoTX, token)
		if ferr != nil {
			return &CallbackResult{Outcome: model.CallbackFailed}, nil
		}
		return &CallbackResult{Outcome: u.failUnreachable(ctx, p.ID), PaymentID: p.ID}, nil
	}

	id, err := uuid.Parse(result.ConversationID)
	if err != nil {
		u.log.Warn().Str("conversation_id", result.ConversationID).Msg("callback with malformed conversation id")
		return &CallbackResult{Outcome: model.CallbackMalformed}, nil
	}
	locked, err := u.LockForProcessing(ctx, id.String())
	if err != nil {
		return &CallbackResult{Outcome: model.CallbackFailed, PaymentID: id.String()}, err
	}
	if locked == nil {
		return &CallbackResult{Outcome: u.alreadyHandled(ctx, id.String(), result), PaymentID: id.String()}, nil
	}
	return &CallbackResult{Outcome: u.settle(ctx, locked, result), PaymentID: locked.ID}, nil
}

// alreadyHandled classifies a callback that lost the processing lock. A gateway
// success on a payment stored as failed means money was taken without a grant.
func (u *paymentUC) alreadyHandled(ctx context.Context, paymentID string, result *model.GatewayResult) model.CallbackOutcome {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil || result.Status != model.GatewayStatusSuccess || p.Status != model.PaymentStatusFailed {
		u.log.Info().Str("payment_id", paymentID).Msg("callback for already handled payment")
		return model.CallbackDuplicate
	}
	u.log.Error().
		Str("payment_id", p.ID).
		Str("fail_reason", p.FailReason).
		RawJSON("provider", rawOrNull(result.Raw)).
		Msg("gateway reports success for a failed payment")
	if u.alerter != nil {
		msg := fmt.Sprintf("payment %s was charged after being failed (%s), needs refund or manual grant", p.ID, p.FailReason)
		if aerr := u.alerter.Alert(ctx, msg); aerr != nil {
			u.log.Warn().Err(aerr).Str("payment_id", p.ID).Msg("ops alert not delivered")
		}
	}
	return model.CallbackConflict
}

func (u *paymentUC) retrieve(ctx context.Context, token string) (*model.GatewayResult, error) {
	gctx, cancel := context.WithTimeout(ctx, u.opts.GatewayTimeout)
	defer cancel()
	started := time.Now()
	res, err := u.gateway.RetrieveResult(gctx, token)
	metrics.ObserveGatewayCall(u.gateway.Name(), "retrieve", started, err)
	return res, err
}

// failUnreachable takes the lock and fails the payment; an already handled payment is left alone.
func (u *paymentUC) failUnreachable(ctx context.Context, paymentID string) model.CallbackOutcome {
	locked, err := u.LockForProcessing(ctx, paymentID)
	if err != nil || locked == nil {
		return model.CallbackFailed
	}
	if err := u.MarkFailed(ctx, locked.ID, model.FailReasonGatewayUnreach, nil); err != nil {
		u.log.Error().Err(err).Str("payment_id", locked.ID).Msg("could not fail payment")
	}
	return model.CallbackFailed
}

// settle finishes a payment this caller holds in processing.
func (u *paymentUC) settle(ctx context.Context, p *model.Payment, result *model.GatewayResult) model.CallbackOutcome {
	if result.Status != model.GatewayStatusSuccess {
		reason := result.ErrorMessage
		if reason == "" {
			reason = model.FailReasonPaymentFailed
		}
		if err := u.MarkFailed(ctx, p.ID, reason, result.Raw); err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Msg("could not fail payment")
		}
		u.log.Info().Str("payment_id", p.ID).Str("reason", reason).RawJSON("provider", rawOrNull(result.Raw)).Msg("payment declined")
		return model.CallbackFailed
	}
	if _, err := u.applier.ApplyPayment(ctx, p.ID, result.Raw); err != nil {
		u.applyFailed(ctx, p.ID, err)
		return model.CallbackFailed
	}
	return model.CallbackSucceeded
}

// applyFailed fails the payment on integrity faults. Other errors leave it in
// processing for the stale sweep to resume.
func (u *paymentUC) applyFailed(ctx context.Context, paymentID string, err error) {
	u.log.Error().Err(err).Str("payment_id", paymentID).Msg("applying payment success failed")
	f, ok := domain.FaultOf(err)
	if !ok || f.Class != domain.FaultIntegrity {
		return
	}
	if ferr := u.MarkFailed(ctx, paymentID, model.FailReasonApplyIntegrity+":"+f.Code, nil); ferr != nil {
		u.log.Error().Err(ferr).Str("payment_id", paymentID).Msg("could not fail payment")
	}
	if u.alerter != nil {
		_ = u.alerter.Alert(ctx, fmt.Sprintf("payment %s aborted: %s", paymentID, f.Error()))
	}
}

func (u *paymentUC) InitManual(ctx context.Context, userID, packageName string) (*model.Payment, error) {
	pkg, err := u.packages.FindByName(ctx, repository.NoTX, strings.TrimSpace(packageName))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validation("UNKNOWN_PACKAGE", "package "+packageName+" not found")
		}
		return nil, err
	}
	if pkg.Kind != model.PackageKindMembership {
		return nil, domain.Validation("UNSUPPORTED_PACKAGE", "manual payments only cover memberships")
	}
	return u.CreatePending(ctx, PendingPayment{
		UserID:    userID,
		PackageID: pkg.ID,
		Amount:    pkg.Price,
		Provider:  model.PaymentProviderManual,
		Meta:      model.PaymentMeta{Type: PurchaseTypePremium, Plan: pkg.Name},
	})
}

func (u *paymentUC) ConfirmManual(ctx context.Context, paymentID string) (*CallbackResult, error) {
	locked, err := u.LockForProcessing(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
		if err != nil {
			return nil, err
		}
		if p.Status == model.PaymentStatusSuccess {
			return &CallbackResult{Outcome: model.CallbackDuplicate, PaymentID: p.ID}, nil
		}
		return nil, domain.ErrInvalidTransition
	}
	if _, err := u.applier.ApplyPayment(ctx, locked.ID, nil); err != nil {
		u.applyFailed(ctx, locked.ID, err)
		return nil, err
	}
	return &CallbackResult{Outcome: model.CallbackSucceeded, PaymentID: locked.ID}, nil
}

func (u *paymentUC) ResolveStale(ctx context.Context, p *model.Payment) (model.CallbackOutcome, error) {
	switch p.Status {
	case model.PaymentStatusPending:
		if p.ProviderToken == "" {
			locked, err := u.LockForProcessing(ctx, p.ID)
			if err != nil {
				return model.CallbackFailed, err
			}
			if locked == nil {
				return model.CallbackDuplicate, nil
			}
			return model.CallbackFailed, u.MarkFailed(ctx, locked.ID, model.FailReasonCheckoutAbandon, nil)
		}
		res, err := u.HandleCallback(ctx, model.IncomingCallback{Token: p.ProviderToken})
		if err != nil {
			return model.CallbackFailed, err
		}
		return res.Outcome, nil

	case model.PaymentStatusProcessing:
		if p.ProviderToken == "" {
			if _, err := u.applier.ApplyPayment(ctx, p.ID, nil); err != nil {
				u.applyFailed(ctx, p.ID, err)
				return model.CallbackFailed, err
			}
			return model.CallbackSucceeded, nil
		}
		res, err := u.retrieve(ctx, p.ProviderToken)
		if err != nil {
			// leave it in processing; the gateway may answer on the next pass
			return model.CallbackFailed, err
		}
		return u.settle(ctx, p, res), nil
	}
	return model.CallbackDuplicate, nil
}

func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
