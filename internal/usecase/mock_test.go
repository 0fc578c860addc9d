//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func strPtr(s string) *string { return &s }

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// keyMessages renders the key followed by its arguments, enough to assert on.
type keyMessages struct{}

func (keyMessages) T(key string, args ...interface{}) string { return key }

// =============================
// In-memory ledger
// =============================

// memDB is shared by all in-memory repositories so a test can assert across tables.
type memDB struct {
	mu            sync.Mutex
	packages      map[string]*model.Package
	payments      map[string]*model.Payment
	subs          map[string]*model.Subscription
	boosts        map[string]*model.ListingBoost
	users         map[string]*model.User
	listings      map[string]*model.Listing
	notifications []*model.Notification
}

func newMemDB() *memDB {
	return &memDB{
		packages: map[string]*model.Package{},
		payments: map[string]*model.Payment{},
		subs:     map[string]*model.Subscription{},
		boosts:   map[string]*model.ListingBoost{},
		users:    map[string]*model.User{},
		listings: map[string]*model.Listing{},
	}
}

func (db *memDB) snapshot() *memDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := newMemDB()
	for k, v := range db.packages {
		c := *v
		cp.packages[k] = &c
	}
	for k, v := range db.payments {
		c := *v
		cp.payments[k] = &c
	}
	for k, v := range db.subs {
		c := *v
		cp.subs[k] = &c
	}
	for k, v := range db.boosts {
		c := *v
		cp.boosts[k] = &c
	}
	for k, v := range db.users {
		c := *v
		cp.users[k] = &c
	}
	for k, v := range db.listings {
		c := *v
		cp.listings[k] = &c
	}
	cp.notifications = append(cp.notifications, db.notifications...)
	return cp
}

func (db *memDB) restore(from *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.packages, db.payments, db.subs = from.packages, from.payments, from.subs
	db.boosts, db.users, db.listings = from.boosts, from.users, from.listings
	db.notifications = from.notifications
}

func (db *memDB) activeSubs(userID string) []*model.Subscription {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.Subscription
	for _, s := range db.subs {
		if s.UserID == userID && s.IsActive {
			c := *s
			out = append(out, &c)
		}
	}
	return out
}

func (db *memDB) activeBoosts(listingID string) []*model.ListingBoost {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.ListingBoost
	for _, b := range db.boosts {
		if b.ListingID == listingID && b.IsActive {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

func (db *memDB) payment(id string) *model.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.payments[id]; ok {
		c := *p
		return &c
	}
	return nil
}

func (db *memDB) user(id string) *model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := *db.users[id]
	return &c
}

func (db *memDB) listing(id string) *model.Listing {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := *db.listings[id]
	return &c
}

func (db *memDB) counts() (subs, boosts int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.subs), len(db.boosts)
}

// ---- Seeding helpers ----

func (db *memDB) addPackage(name string, kind model.PackageKind, days int, price string) *model.Package {
	p := &model.Package{ID: uuid.NewString(), Name: name, Kind: kind, DurationDays: days, IsActive: true}
	p.Price = mustDecimal(price)
	db.mu.Lock()
	db.packages[p.ID] = p
	db.mu.Unlock()
	c := *p
	return &c
}

func (db *memDB) addUser(id string) *model.User {
	u := &model.User{ID: id, Email: id + "@example.com", Name: id, Plan: model.PlanFree}
	db.mu.Lock()
	db.users[id] = u
	db.mu.Unlock()
	c := *u
	return &c
}

func (db *memDB) addListing(id, sellerID string) *model.Listing {
	l := &model.Listing{ID: id, SellerID: sellerID, Title: "iPhone " + id, Status: model.ListingStatusActive}
	db.mu.Lock()
	db.listings[id] = l
	db.mu.Unlock()
	c := *l
	return &c
}

func (db *memDB) putPayment(p *model.Payment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := *p
	db.payments[p.ID] = &c
}

func (db *memDB) putSub(s *model.Subscription) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := *s
	db.subs[s.ID] = &c
}

func (db *memDB) putBoost(b *model.ListingBoost) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := *b
	db.boosts[b.ID] = &c
}

// =============================
// Transactions
// =============================

// MockTxManager runs fn against the in-memory ledger and restores the
// snapshot taken before fn when fn fails.
type MockTxManager struct {
	db         *memDB
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	snap := m.db.snapshot()
	if err := fn(ctx, repository.NoTX); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

type MockAdvisoryLocker struct {
	mu   sync.Mutex
	Keys []string
}

func (l *MockAdvisoryLocker) LockXact(ctx context.Context, tx repository.Tx, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Keys = append(l.Keys, key)
	return nil
}

// ---- In-memory Locker (implements adapter.Locker port) ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

var _ adapter.Locker = (*MockLocker)(nil)

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// =============================
// Repositories
// =============================

// ---- Packages ----

type MockPackageRepo struct{ db *memDB }

var _ repository.PackageRepository = (*MockPackageRepo)(nil)

func (r *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, existing := range r.db.packages {
		if existing.Name == p.Name {
			delete(r.db.packages, id)
		}
	}
	c := *p
	r.db.packages[p.ID] = &c
	return nil
}

func (r *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.packages[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPackageRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Package, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.packages {
		if p.Name == name {
			c := *p
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPackageRepo) ListActiveByKind(ctx context.Context, tx repository.Tx, kind model.PackageKind) ([]*model.Package, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Package
	for _, p := range r.db.packages {
		if p.Kind == kind && p.IsActive {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	db *memDB

	SaveFunc          func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	MarkSucceededFunc func(ctx context.Context, tx repository.Tx, id string, raw json.RawMessage) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.db.putPayment(p)
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if p := r.db.payment(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.ProviderToken == token {
			c := *p
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindPending(ctx context.Context, tx repository.Tx, userID, packageID string, listingID *string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.UserID != userID || p.PackageID != packageID || p.Status != model.PaymentStatusPending {
			continue
		}
		if (listingID == nil) != (p.ListingID == nil) {
			continue
		}
		if listingID != nil && *listingID != *p.ListingID {
			continue
		}
		c := *p
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) SetSession(ctx context.Context, tx repository.Tx, id, token, pageURL string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusPending || p.ProviderToken != "" {
		return false, nil
	}
	p.ProviderToken = token
	p.CheckoutURL = pageURL
	return true, nil
}

func (r *MockPaymentRepo) LockForProcessing(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return nil, nil
	}
	p.Status = model.PaymentStatusProcessing
	c := *p
	return &c, nil
}

func (r *MockPaymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, from model.PaymentStatus, reason string, raw json.RawMessage) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	p.FailReason = reason
	p.ProviderResult = raw
	return true, nil
}

func (r *MockPaymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, id string, raw json.RawMessage) (bool, error) {
	if r.MarkSucceededFunc != nil {
		return r.MarkSucceededFunc(ctx, tx, id, raw)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusProcessing {
		return false, nil
	}
	p.Status = model.PaymentStatusSuccess
	p.ProviderResult = raw
	return true, nil
}

func (r *MockPaymentRepo) ListStale(ctx context.Context, tx repository.Tx, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.db.payments {
		if p.Status == status && p.UpdatedAt.Before(olderThan) {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	db *memDB

	SaveFunc       func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	DeactivateFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.db.putSub(s)
	return nil
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	active := r.db.activeSubs(userID)
	if len(active) == 0 {
		return nil, domain.ErrNotFound
	}
	return active[0], nil
}

func (r *MockSubscriptionRepo) FindByTransaction(ctx context.Context, tx repository.Tx, productID, transactionID string) (*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.subs {
		if s.ProductID == productID && s.TransactionID == transactionID {
			c := *s
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) DeactivateActiveByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, s := range r.db.subs {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.db.subs {
		if s.IsActive && !s.EndDate.After(now) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.DeactivateFunc != nil {
		return r.DeactivateFunc(ctx, tx, id)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.subs[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

// ---- Boosts ----

type MockBoostRepo struct {
	db *memDB

	DeactivateFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.BoostRepository = (*MockBoostRepo)(nil)

func (r *MockBoostRepo) Save(ctx context.Context, tx repository.Tx, b *model.ListingBoost) error {
	r.db.putBoost(b)
	return nil
}

func (r *MockBoostRepo) FindActiveByListing(ctx context.Context, tx repository.Tx, listingID string) (*model.ListingBoost, error) {
	active := r.db.activeBoosts(listingID)
	if len(active) == 0 {
		return nil, domain.ErrNotFound
	}
	return active[0], nil
}

func (r *MockBoostRepo) FindByTransaction(ctx context.Context, tx repository.Tx, productID, transactionID string) (*model.ListingBoost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.boosts {
		if b.ProductID == productID && b.TransactionID == transactionID {
			c := *b
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockBoostRepo) DeactivateActiveByListing(ctx context.Context, tx repository.Tx, listingID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, b := range r.db.boosts {
		if b.ListingID == listingID && b.IsActive {
			b.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MockBoostRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.ListingBoost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.ListingBoost
	for _, b := range r.db.boosts {
		if b.IsActive && !b.EndDate.After(now) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockBoostRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.DeactivateFunc != nil {
		return r.DeactivateFunc(ctx, tx, id)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.boosts[id]
	if !ok || !b.IsActive {
		return false, nil
	}
	b.IsActive = false
	return true, nil
}

// ---- Users ----

type MockUserRepo struct {
	db *memDB

	SetPlanCacheFunc     func(ctx context.Context, tx repository.Tx, userID, plan string, expiresAt *time.Time) error
	ClearExpiredPlanFunc func(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *u
	r.db.users[u.ID] = &c
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) SetPlanCache(ctx context.Context, tx repository.Tx, userID, plan string, expiresAt *time.Time) error {
	if r.SetPlanCacheFunc != nil {
		return r.SetPlanCacheFunc(ctx, tx, userID, plan, expiresAt)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Plan = plan
	u.PlanExpiresAt = expiresAt
	return nil
}

func (r *MockUserRepo) ClearExpiredPlan(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error) {
	if r.ClearExpiredPlanFunc != nil {
		return r.ClearExpiredPlanFunc(ctx, tx, userID, now)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok || u.PlanExpiresAt == nil || u.PlanExpiresAt.After(now) {
		return false, nil
	}
	u.Plan = model.PlanFree
	u.PlanExpiresAt = nil
	return true, nil
}

// ---- Listings ----

type MockListingRepo struct {
	db *memDB

	MarkPassiveFunc       func(ctx context.Context, tx repository.Tx, id string) (bool, error)
	ClearExpiredBoostFunc func(ctx context.Context, tx repository.Tx, listingID string, now time.Time) (bool, error)
}

var _ repository.ListingRepository = (*MockListingRepo)(nil)

func (r *MockListingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *l
	r.db.listings[l.ID] = &c
	return nil
}

func (r *MockListingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if l, ok := r.db.listings[id]; ok {
		c := *l
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockListingRepo) SetBoostCache(ctx context.Context, tx repository.Tx, listingID string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.listings[listingID]
	if !ok {
		return domain.ErrNotFound
	}
	l.IsBoosted = true
	l.BoostExpiresAt = &expiresAt
	return nil
}

func (r *MockListingRepo) ClearExpiredBoost(ctx context.Context, tx repository.Tx, listingID string, now time.Time) (bool, error) {
	if r.ClearExpiredBoostFunc != nil {
		return r.ClearExpiredBoostFunc(ctx, tx, listingID, now)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.listings[listingID]
	if !ok {
		return false, nil
	}
	if l.BoostExpiresAt != nil && l.BoostExpiresAt.After(now) {
		return false, nil
	}
	l.IsBoosted = false
	l.BoostExpiresAt = nil
	return true, nil
}

func (r *MockListingRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Listing
	for _, l := range r.db.listings {
		if l.Status == model.ListingStatusActive && l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockListingRepo) ListExpiredBoostCache(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Listing
	for _, l := range r.db.listings {
		if l.IsBoosted && l.BoostExpiresAt != nil && !l.BoostExpiresAt.After(now) {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockListingRepo) MarkPassive(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.MarkPassiveFunc != nil {
		return r.MarkPassiveFunc(ctx, tx, id)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.listings[id]
	if !ok || l.Status != model.ListingStatusActive {
		return false, nil
	}
	l.Status = model.ListingStatusPassive
	return true, nil
}

func (r *MockListingRepo) CountActiveBySeller(ctx context.Context, tx repository.Tx, sellerID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, l := range r.db.listings {
		if l.SellerID == sellerID && l.Status == model.ListingStatusActive {
			n++
		}
	}
	return n, nil
}

// ---- Notifications ----

type MockNotificationRepo struct{ db *memDB }

var _ repository.NotificationRepository = (*MockNotificationRepo)(nil)

func (r *MockNotificationRepo) Save(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *n
	r.db.notifications = append(r.db.notifications, &c)
	return nil
}

func (r *MockNotificationRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Notification
	for i := len(r.db.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.db.notifications[i]; n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MockNotificationRepo) MarkRead(ctx context.Context, tx repository.Tx, userID, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, n := range r.db.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

// =============================
// Adapters
// =============================

// ---- Notifier ----

type sentNote struct{ UserID, Title, Message string }

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentNote
	Err  error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (n *MockNotifier) Notify(ctx context.Context, userID, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, sentNote{userID, title, message})
	return nil
}

func (n *MockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

type MockAlerter struct {
	mu   sync.Mutex
	Msgs []string
}

func (a *MockAlerter) Alert(ctx context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Msgs = append(a.Msgs, text)
	return nil
}

// ---- Payment gateway ----

type MockPaymentGateway struct {
	InitCheckoutFunc   func(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)
	RetrieveResultFunc func(ctx context.Context, token string) (*model.GatewayResult, error)

	mu        sync.Mutex
	Inits     []model.CheckoutRequest
	Retrieves int
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) InitCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	g.mu.Lock()
	g.Inits = append(g.Inits, req)
	g.mu.Unlock()
	if g.InitCheckoutFunc != nil {
		return g.InitCheckoutFunc(ctx, req)
	}
	return &model.CheckoutResult{
		Token:               "tok-" + req.ConversationID,
		CheckoutFormContent: "<form/>",
		PaymentPageURL:      "https://pay.example.com/" + req.ConversationID,
	}, nil
}

func (g *MockPaymentGateway) RetrieveResult(ctx context.Context, token string) (*model.GatewayResult, error) {
	g.mu.Lock()
	g.Retrieves++
	g.mu.Unlock()
	if g.RetrieveResultFunc != nil {
		return g.RetrieveResultFunc(ctx, token)
	}
	return nil, errors.New("no result configured")
}

// ---- Receipt verifier ----

type verifyCall struct {
	Receipt string
	Sandbox bool
}

type MockReceiptVerifier struct {
	mu         sync.Mutex
	Calls      []verifyCall
	VerifyFunc func(ctx context.Context, receipt string, sandbox bool) (*model.VerifiedReceipt, error)
}

var _ adapter.ReceiptVerifier = (*MockReceiptVerifier)(nil)

func (v *MockReceiptVerifier) Verify(ctx context.Context, receipt string, sandbox bool) (*model.VerifiedReceipt, error) {
	v.mu.Lock()
	v.Calls = append(v.Calls, verifyCall{receipt, sandbox})
	v.mu.Unlock()
	if v.VerifyFunc != nil {
		return v.VerifyFunc(ctx, receipt, sandbox)
	}
	return nil, errors.New("no verifier configured")
}
