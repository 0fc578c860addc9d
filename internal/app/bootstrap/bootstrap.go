// Package bootstrap is the composition root shared by the server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	ucport "github.com/myagiz61/backend/internal/domain/ports/usecase"
	payAdapters "github.com/myagiz61/backend/internal/infra/adapters/payment"
	"github.com/myagiz61/backend/internal/infra/adapters/receipt"
	tele "github.com/myagiz61/backend/internal/infra/adapters/telegram"
	"github.com/myagiz61/backend/internal/infra/api"
	pg "github.com/myagiz61/backend/internal/infra/db/postgres"
	"github.com/myagiz61/backend/internal/infra/i18n"
	red "github.com/myagiz61/backend/internal/infra/redis"
	"github.com/myagiz61/backend/internal/infra/sched"
	"github.com/myagiz61/backend/internal/infra/scheduler"
	"github.com/myagiz61/backend/internal/infra/worker"
	"github.com/myagiz61/backend/internal/usecase"
)

// App holds every long-lived component. Build it once per process.
type App struct {
	Config *config.Config
	Log    *zerolog.Logger

	DB    *pgxpool.Pool
	Redis *red.Client

	Catalog       usecase.CatalogUseCase
	Payments      usecase.PaymentUseCase
	Receipts      usecase.ReceiptUseCase
	Entitlements  usecase.EntitlementUseCase
	Notifications usecase.NotificationUseCase
	Expiry        ucport.ExpirySweeper
	Stale         ucport.StalePaymentResolver

	Workers   *worker.Pool
	Scheduler *scheduler.Scheduler
	Auth      *api.AuthManager
}

// Build connects Postgres and Redis and wires the use cases. Nothing is
// started; the caller decides which parts run.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	rc, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	a := &App{Config: cfg, Log: logger, DB: pool, Redis: rc}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	cfg, logger := a.Config, a.Log

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(a.DB)
	listingRepo := pg.NewListingRepo(a.DB)
	payRepo := pg.NewPaymentRepo(a.DB)
	subRepo := pg.NewSubscriptionRepo(a.DB)
	boostRepo := pg.NewBoostRepo(a.DB)
	notifRepo := pg.NewNotificationRepo(a.DB)
	pkgRepo := pg.NewPackageRepoCacheDecorator(pg.NewPostgresPackageRepo(a.DB), a.Redis, cfg.Redis.TTL, logger)
	txm := pg.NewTxManager(a.DB)
	advisory := pg.NewAdvisoryLocker(a.DB)

	// ---- Adapters ----
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}
	alerter := newAlerter(cfg, logger)
	verifier := receipt.NewAppleVerifier(cfg.IAP.Apple)
	msgs, err := i18n.NewTranslator(i18n.LocalesFS, i18n.DefaultLang)
	if err != nil {
		return err
	}

	// ---- Notifications ----
	notifUC := usecase.NewNotificationUseCase(notifRepo, logger)
	a.Workers = worker.NewPool(cfg.Workers.Notifications, cfg.Workers.QueueSize, logger)
	notifier := worker.NewAsyncNotifier(notifUC, a.Workers, logger)

	// ---- Use cases ----
	catalogUC := usecase.NewCatalogUseCase(pkgRepo, listingRepo, logger)
	applier := usecase.NewSuccessApplier(txm, advisory, pkgRepo, payRepo, subRepo, boostRepo, userRepo, listingRepo, notifier, msgs, logger)
	payUC := usecase.NewPaymentUseCase(payRepo, pkgRepo, listingRepo, userRepo, catalogUC, applier, gateway,
		red.NewLocker(a.Redis), alerter,
		usecase.PaymentOptions{
			CallbackURL:    cfg.Payment.Iyzico.CallbackURL,
			GatewayTimeout: cfg.Payment.Iyzico.Timeout,
			CheckoutLock:   cfg.Payment.CheckoutLock,
		}, logger)
	receiptUC := usecase.NewReceiptUseCase(pkgRepo, listingRepo, verifier, applier,
		usecase.ReceiptOptions{AllowMock: cfg.IAP.AllowMock, VerifyTimeout: cfg.IAP.Apple.Timeout}, logger)
	reconcileUC := usecase.NewReconcileUseCase(boostRepo, subRepo, listingRepo, userRepo, payRepo, payUC, notifier, msgs,
		usecase.ReconcileOptions{BatchSize: cfg.Scheduler.BatchSize, StaleAfter: cfg.Scheduler.StaleAfter}, logger)

	a.Catalog = catalogUC
	a.Payments = payUC
	a.Receipts = receiptUC
	a.Entitlements = usecase.NewEntitlementUseCase(userRepo, subRepo, pkgRepo, listingRepo, logger)
	a.Notifications = notifUC
	a.Expiry = reconcileUC
	a.Stale = reconcileUC

	// ---- Scheduler ----
	guard := red.NewLeaderGuard(a.Redis, cfg.Scheduler.LeaderTTL, logger)
	a.Scheduler = scheduler.NewScheduler(guard, cfg.Scheduler.LeaderTTL, logger)
	if err := a.Scheduler.Add(cfg.Scheduler.SweepCron, "expiry", sched.NewExpiryWorker(reconcileUC, logger).Run); err != nil {
		return err
	}
	if err := a.Scheduler.Add(cfg.Scheduler.SweepCron, "stale_payments", sched.NewPaymentReconciler(reconcileUC, logger).Run); err != nil {
		return err
	}

	a.Auth = api.NewAuthManager(cfg.Auth.JWTSecret, 0)
	return nil
}

// HTTPServer builds the API server; it is not started.
func (a *App) HTTPServer() *http.Server {
	srv := api.NewServer(api.Deps{
		Payments:      a.Payments,
		Receipts:      a.Receipts,
		Catalog:       a.Catalog,
		Entitlements:  a.Entitlements,
		Notifications: a.Notifications,
		Limiter:       red.NewRateLimiter(a.Redis),
	}, a.Auth, api.Options{
		Redirects:      a.Config.Redirects,
		AdminAPIKey:    a.Config.Auth.AdminAPIKey,
		RequestTimeout: a.Config.HTTP.WriteTimeout,
	}, a.Log)
	return &http.Server{
		Addr:         a.Config.HTTP.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
	}
}

// Close releases connections. Stop the scheduler and workers first.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// newGateway falls back to the in-memory gateway only in dev mode.
func newGateway(cfg *config.Config, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	ic := cfg.Payment.Iyzico
	if ic.APIKey == "" || ic.SecretKey == "" {
		if !cfg.Runtime.Dev {
			return nil, errors.New("payment.iyzico api_key and secret_key are required outside dev mode")
		}
		logger.Warn().Msg("iyzico credentials missing; using the noop gateway")
		return payAdapters.NewNoopPaymentGateway(), nil
	}
	return payAdapters.NewIyzicoGateway(ic)
}

func newAlerter(cfg *config.Config, logger *zerolog.Logger) adapter.OpsAlerter {
	if cfg.Telegram.Token == "" {
		return tele.NewNoopAlerter(logger)
	}
	a, err := tele.NewOpsAlerter(&cfg.Telegram, logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram alerter unavailable; alerts go to the log")
		return tele.NewNoopAlerter(logger)
	}
	return a
}

// StartBackground runs the notification workers, the scheduler and the pool
// stats reporter until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	a.Workers.Start(ctx)
	a.Scheduler.Start(ctx)
	go pg.ReportPoolStats(ctx, a.DB, 15*time.Second, a.Log)
}

// StopBackground stops the scheduler, then drains queued notifications.
func (a *App) StopBackground() {
	a.Scheduler.Stop()
	a.Workers.Stop()
}
