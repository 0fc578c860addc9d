//go:build !integration

package api

import (
	"context"
	"time"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/usecase"
)

type mockPayments struct {
	usecase.PaymentUseCase
	callback    func(cb model.IncomingCallback) (*usecase.CallbackResult, error)
	checkout    func(in usecase.CheckoutInput) (*usecase.CheckoutOutput, error)
	confirmed   []string
	lastCb      model.IncomingCallback
	manualInits []string
}

func (m *mockPayments) HandleCallback(ctx context.Context, cb model.IncomingCallback) (*usecase.CallbackResult, error) {
	m.lastCb = cb
	return m.callback(cb)
}

func (m *mockPayments) Checkout(ctx context.Context, in usecase.CheckoutInput) (*usecase.CheckoutOutput, error) {
	return m.checkout(in)
}

func (m *mockPayments) InitManual(ctx context.Context, userID, pkg string) (*model.Payment, error) {
	m.manualInits = append(m.manualInits, userID+":"+pkg)
	return &model.Payment{ID: "11111111-1111-1111-1111-111111111111", Status: model.PaymentStatusPending, Currency: "TRY"}, nil
}

func (m *mockPayments) ConfirmManual(ctx context.Context, id string) (*usecase.CallbackResult, error) {
	m.confirmed = append(m.confirmed, id)
	return &usecase.CallbackResult{Outcome: model.CallbackSucceeded, PaymentID: id}, nil
}

type mockCatalog struct {
	usecase.CatalogUseCase
	lastReq usecase.PurchaseRequest
}

func (m *mockCatalog) Preview(ctx context.Context, req usecase.PurchaseRequest) (*usecase.Quote, error) {
	m.lastReq = req
	if req.Plan == "gold" {
		return nil, domain.Validation("UNKNOWN_PACKAGE", "package gold not found")
	}
	return &usecase.Quote{Type: req.Type, Product: usecase.QuoteProduct{Name: "PRO PREMIUM", Currency: "TRY"}}, nil
}

func (m *mockCatalog) ListMemberships(ctx context.Context) ([]*model.Package, error) {
	return []*model.Package{{ID: "p1", Name: "pro", Kind: model.PackageKindMembership, DurationDays: 30}}, nil
}

type mockReceipts struct {
	err  error
	last model.ReceiptPurchase
}

func (m *mockReceipts) Verify(ctx context.Context, in model.ReceiptPurchase) (*usecase.ReceiptResult, error) {
	m.last = in
	if m.err != nil {
		return nil, m.err
	}
	return &usecase.ReceiptResult{OK: true, Type: "premium", Plan: "pro"}, nil
}

type mockEntitlements struct{}

func (mockEntitlements) Status(ctx context.Context, userID string) (*usecase.EntitlementStatus, error) {
	return &usecase.EntitlementStatus{IsPremium: true, Plan: "pro"}, nil
}

func (mockEntitlements) CheckListingQuota(ctx context.Context, userID string) (*usecase.ListingQuotaStatus, error) {
	return nil, domain.Forbidden("LISTING_LIMIT_REACHED", "plan allows 5 active listings")
}

type mockNotifications struct {
	usecase.NotificationUseCase
	read []string
}

func (m *mockNotifications) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	return []*model.Notification{{ID: "01J", UserID: userID, Title: "t", Message: "m", CreatedAt: time.Unix(0, 0)}}, nil
}

func (m *mockNotifications) MarkRead(ctx context.Context, userID, id string) error {
	if id == "missing" {
		return domain.ErrNotFound
	}
	m.read = append(m.read, userID+":"+id)
	return nil
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}
