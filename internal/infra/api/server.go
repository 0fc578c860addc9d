package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/infra/metrics"
	red "github.com/myagiz61/backend/internal/infra/redis"
	"github.com/myagiz61/backend/internal/usecase"
)

// Deps are the use cases the HTTP surface drives.
type Deps struct {
	Payments      usecase.PaymentUseCase
	Receipts      usecase.ReceiptUseCase
	Catalog       usecase.CatalogUseCase
	Entitlements  usecase.EntitlementUseCase
	Notifications usecase.NotificationUseCase
	Limiter       Limiter
}

type Options struct {
	Redirects      config.RedirectConfig
	AdminAPIKey    string
	RequestTimeout time.Duration
	// per user per minute on checkout and receipt verify
	PurchaseRateLimit int
}

// Server exposes the payment, receipt and entitlement routes.
type Server struct {
	deps Deps
	auth *AuthManager
	opts Options
	log  *zerolog.Logger
}

func NewServer(deps Deps, auth *AuthManager, opts Options, logger *zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.PurchaseRateLimit <= 0 {
		opts.PurchaseRateLimit = 10
	}
	opts.Redirects.FrontendURL = strings.TrimRight(opts.Redirects.FrontendURL, "/")
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{deps: deps, auth: auth, opts: opts, log: &l}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.opts.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/packages/memberships", s.handleListMemberships)
		r.Get("/packages/boosts", s.handleListBoosts)

		r.Route("/payments", func(r chi.Router) {
			// provider-driven browser redirect; no auth, always redirects
			r.Get("/callback", s.handleCallback)
			r.Post("/callback", s.handleCallback)
			r.Post("/preview", s.handlePreview)
			r.With(RequireUser(s.auth), s.purchaseLimit("checkout")).Post("/checkout", s.handleCheckout)
		})

		r.Route("/iap", func(r chi.Router) {
			r.Use(RequireUser(s.auth))
			r.With(s.purchaseLimit("iap_verify")).Post("/verify", s.handleVerifyReceipt)
			r.Get("/me", s.handleEntitlementStatus)
		})

		r.With(RequireUser(s.auth)).Get("/listings/quota", s.handleListingQuota)

		r.Route("/notifications", func(r chi.Router) {
			r.Use(RequireUser(s.auth))
			r.Get("/", s.handleListNotifications)
			r.Post("/{id}/read", s.handleMarkNotificationRead)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(s.opts.AdminAPIKey, s.auth, s.log))
			r.Post("/payments/manual", s.handleManualInit)
			r.Post("/payments/{id}/confirm", s.handleManualConfirm)
		})
	})
	return r
}

func (s *Server) purchaseLimit(route string) func(http.Handler) http.Handler {
	if s.deps.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimit(s.deps.Limiter, route, s.opts.PurchaseRateLimit, time.Minute, red.UserRouteKey, s.log)
}

func (s *Server) successURL(paymentID string) string {
	u := s.opts.Redirects.FrontendURL + "/odeme-basarili"
	if paymentID != "" {
		u += "?pid=" + url.QueryEscape(paymentID)
	}
	return u
}

func (s *Server) failureURL() string {
	return s.opts.Redirects.FrontendURL + "/odeme-hata"
}

// deepLink builds <scheme>://payment?status=success|failure[&pid=].
func (s *Server) deepLink(ok bool, paymentID string) string {
	q := url.Values{}
	if ok {
		q.Set("status", "success")
		if paymentID != "" {
			q.Set("pid", paymentID)
		}
	} else {
		q.Set("status", "failure")
	}
	return s.opts.Redirects.DeepLink + "?" + q.Encode()
}
