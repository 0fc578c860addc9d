//go:build !integration

package usecase_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/myagiz61/backend/internal/domain/model"
	ucport "github.com/myagiz61/backend/internal/domain/ports/usecase"
	"github.com/myagiz61/backend/internal/usecase"
)

func mustDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// testLedger wires every use case of the billing core against one in-memory ledger.
type testLedger struct {
	db *memDB

	tm       *MockTxManager
	locks    *MockAdvisoryLocker
	locker   *MockLocker
	packages *MockPackageRepo
	payments *MockPaymentRepo
	subs     *MockSubscriptionRepo
	boosts   *MockBoostRepo
	users    *MockUserRepo
	listings *MockListingRepo
	notes    *MockNotificationRepo

	notifier *MockNotifier
	alerter  *MockAlerter
	gateway  *MockPaymentGateway
	verifier *MockReceiptVerifier

	basic, standard, pro *model.Package
	boostDay             *model.Package
	boostWeek            *model.Package
	boostMonth           *model.Package
	now                  time.Time
}

type reconcileHandle struct {
	ucport.ExpirySweeper
	ucport.StalePaymentResolver
}

func newTestLedger(now time.Time) *testLedger {
	db := newMemDB()
	l := &testLedger{
		db:       db,
		tm:       &MockTxManager{db: db},
		locks:    &MockAdvisoryLocker{},
		locker:   NewMockLocker(),
		packages: &MockPackageRepo{db: db},
		payments: &MockPaymentRepo{db: db},
		subs:     &MockSubscriptionRepo{db: db},
		boosts:   &MockBoostRepo{db: db},
		users:    &MockUserRepo{db: db},
		listings: &MockListingRepo{db: db},
		notes:    &MockNotificationRepo{db: db},
		notifier: &MockNotifier{},
		alerter:  &MockAlerter{},
		gateway:  &MockPaymentGateway{},
		verifier: &MockReceiptVerifier{},
		now:      now,
	}
	l.basic = db.addPackage("basic", model.PackageKindMembership, 30, "0")
	l.standard = db.addPackage("standard", model.PackageKindMembership, 30, "199")
	l.pro = db.addPackage("pro", model.PackageKindMembership, 30, "399")
	l.boostDay = db.addPackage("boost_1_day", model.PackageKindBoost, 1, "49")
	l.boostWeek = db.addPackage("boost_1_week", model.PackageKindBoost, 7, "149")
	l.boostMonth = db.addPackage("boost_1_month", model.PackageKindBoost, 30, "299")
	return l
}

func (l *testLedger) applier() usecase.SuccessApplier {
	return usecase.NewSuccessApplier(
		l.tm, l.locks, l.packages, l.payments, l.subs, l.boosts, l.users, l.listings,
		l.notifier, keyMessages{}, newTestLogger(),
	).WithClock(fixedClock(l.now))
}

func (l *testLedger) catalog() usecase.CatalogUseCase {
	return usecase.NewCatalogUseCase(l.packages, l.listings, newTestLogger())
}

func (l *testLedger) paymentUC() usecase.PaymentUseCase {
	return usecase.NewPaymentUseCase(
		l.payments, l.packages, l.listings, l.users, l.catalog(), l.applier(),
		l.gateway, l.locker, l.alerter,
		usecase.PaymentOptions{CallbackURL: "https://api.example.com/payments/callback"},
		newTestLogger(),
	)
}

func (l *testLedger) receiptUC(allowMock bool) usecase.ReceiptUseCase {
	return usecase.NewReceiptUseCase(
		l.packages, l.listings, l.verifier, l.applier(),
		usecase.ReceiptOptions{AllowMock: allowMock}, newTestLogger(),
	).WithClock(fixedClock(l.now))
}

func (l *testLedger) reconcileUC() *reconcileHandle {
	uc := usecase.NewReconcileUseCase(
		l.boosts, l.subs, l.listings, l.users, l.payments, l.paymentUC(),
		l.notifier, keyMessages{}, usecase.ReconcileOptions{}, newTestLogger(),
	)
	return &reconcileHandle{ExpirySweeper: uc, StalePaymentResolver: uc}
}

// processingPayment stores a payment that a callback has already locked.
func (l *testLedger) processingPayment(userID string, pkg *model.Package, listingID *string) *model.Payment {
	p := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		PackageID: pkg.ID,
		ListingID: listingID,
		Amount:    pkg.Price,
		Currency:  model.Currency,
		Status:    model.PaymentStatusProcessing,
		Provider:  model.PaymentProviderGateway,
		CreatedAt: l.now,
		UpdatedAt: l.now,
	}
	l.db.putPayment(p)
	return p
}

func (l *testLedger) pendingPayment(userID string, pkg *model.Package, listingID *string, token string) *model.Payment {
	p := l.processingPayment(userID, pkg, listingID)
	p.Status = model.PaymentStatusPending
	p.ProviderToken = token
	l.db.putPayment(p)
	return p
}
