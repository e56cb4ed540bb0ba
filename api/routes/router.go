package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookhaven/bookledger-backend/api/controllers"
	"github.com/bookhaven/bookledger-backend/api/middleware"
	"github.com/bookhaven/bookledger-backend/internal/auth"
	"github.com/bookhaven/bookledger-backend/internal/catalog"
	"github.com/bookhaven/bookledger-backend/internal/ledger"
	"github.com/bookhaven/bookledger-backend/internal/lending"
	"github.com/bookhaven/bookledger-backend/internal/purchases"
	"github.com/bookhaven/bookledger-backend/pkg/auth/session"
	"github.com/bookhaven/bookledger-backend/pkg/config"
	"github.com/bookhaven/bookledger-backend/pkg/logger"
	"github.com/bookhaven/bookledger-backend/pkg/redis"
)

// RouterParams collects everything the HTTP surface depends on. Pingers are
// interfaces so readiness checks stay testable without live backends.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           *redis.Client
	SessionChecker  session.AccessSessionChecker
	MetricsRegistry *prometheus.Registry

	AuthService     auth.Service
	RegisterService auth.RegisterService
	LedgerService   ledger.Service
	CatalogService  catalog.Service
	LendingService  lending.Service
	PurchaseService purchases.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	// A typed nil *redis.Client must become a nil interface so the redis
	// middlewares disable themselves instead of dereferencing it.
	var idemStore redis.IdempotencyStore
	var rateStore redis.RateLimiterStore
	var redisPinger controllers.Pinger
	if p.Redis != nil {
		idemStore = p.Redis
		rateStore = p.Redis
		redisPinger = p.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPinger))
	})

	if p.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
	})

	// One-time setup. Gated by the deploy token, not a bearer token.
	r.Route("/api/admin/v1/ledger", func(r chi.Router) {
		r.Post("/init", controllers.LedgerInit(p.LedgerService, cfg, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/catalog/books", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(p.CatalogService, logg))
			r.Get("/{bookId}", controllers.CatalogGet(p.CatalogService, logg))
			r.Get("/{bookId}/sales", controllers.CatalogSales(p.PurchaseService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStorekeeper(logg))
				r.Post("/", controllers.CatalogCreate(p.CatalogService, logg))
				r.Delete("/{bookId}", controllers.CatalogDelete(p.CatalogService, logg))
			})
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/me", controllers.LoanMine(p.LendingService, logg))
			r.Post("/{bookId}/borrow", controllers.LoanBorrow(p.LendingService, logg))
			r.Post("/{bookId}/return", controllers.LoanReturn(p.LendingService, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/me", controllers.PurchaseMine(p.PurchaseService, logg))
			r.Post("/{bookId}/buy", controllers.PurchaseBuy(p.PurchaseService, logg))
			r.Post("/{bookId}/refund", controllers.PurchaseRefund(p.PurchaseService, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Get("/me", controllers.RefundMine(p.PurchaseService, logg))
			r.With(middleware.RequireStorekeeper(logg)).Get("/{holderAddress}", controllers.RefundByHolder(p.PurchaseService, logg))
		})
	})

	return r
}
