package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printdock/printdock-backend/api/controllers"
	"github.com/printdock/printdock-backend/api/middleware"
	"github.com/printdock/printdock-backend/internal/auth"
	"github.com/printdock/printdock-backend/internal/batchimports"
	"github.com/printdock/printdock-backend/internal/orders"
	"github.com/printdock/printdock-backend/internal/products"
	"github.com/printdock/printdock-backend/internal/transactions"
	"github.com/printdock/printdock-backend/internal/uploads"
	"github.com/printdock/printdock-backend/internal/users"
	"github.com/printdock/printdock-backend/pkg/auth/session"
	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/metrics"
	pkgredis "github.com/printdock/printdock-backend/pkg/redis"
)

// cacheStore backs rate limiting and idempotency replay.
type cacheStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// Deps carries everything the HTTP surface needs. Nil services are not
// allowed; Cache, Metrics and Gatherer may be nil.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Cache    cacheStore
	Ready    map[string]controllers.Pinger

	Auth         auth.Service
	Products     products.Service
	Uploads      uploads.Service
	Orders       orders.Service
	BatchImports batchimports.Service
	Transactions transactions.Service
	UserAdmin    users.AdminService
	HTTPMetrics  *metrics.HTTPMetrics
	Gatherer     prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Cache, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, d.Cache, logg),
			middleware.Idempotency(d.Cache, logg),
		).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(d.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Get("/me", controllers.AuthMe(d.Auth, logg))
			r.Put("/profile", controllers.AuthUpdateProfile(d.Auth, logg))
			r.Post("/profile/photo", controllers.AuthProfilePhoto(d.Auth, d.Uploads, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(d.Cache, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(d.Products, logg))
			r.Get("/{productId}", controllers.ProductGet(d.Products, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
				r.Post("/", controllers.ProductCreate(d.Products, logg))
				r.Post("/upload-image", controllers.ProductUploadImage(d.Products, d.Uploads, logg))
				r.Put("/{productId}", controllers.ProductUpdate(d.Products, logg))
				r.Delete("/{productId}", controllers.ProductDelete(d.Products, logg))
				r.Post("/{productId}/positions", controllers.ProductAddPosition(d.Products, logg))
				r.Delete("/{productId}/positions/{optionId}", controllers.ProductRemovePosition(d.Products, logg))
				r.Put("/{productId}/positions/{optionId}/default", controllers.ProductSetDefaultPosition(d.Products, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/quote", controllers.OrderQuote(d.Orders, logg))
			r.Post("/batch", controllers.OrderBatchImport(d.BatchImports, cfg.Uploads.CSVMaxBytes, logg))
			r.Post("/", controllers.OrderCreate(d.Orders, logg))
			r.Get("/", controllers.OrderList(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrderGet(d.Orders, logg))
			r.Put("/{orderId}/cancel", controllers.OrderCancel(d.Orders, logg))
		})

		r.Route("/batch-imports", func(r chi.Router) {
			r.Get("/", controllers.BatchImportList(d.BatchImports, logg))
			r.Get("/{batchImportId}", controllers.BatchImportGet(d.BatchImports, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/deposit", controllers.TransactionDeposit(d.Transactions, logg))
			r.Get("/", controllers.TransactionList(d.Transactions, logg))
			r.Get("/{transactionId}", controllers.TransactionGet(d.Transactions, logg))
			r.Post("/{transactionId}/notes", controllers.TransactionAddNote(d.Transactions, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUserList(d.UserAdmin, logg))
				r.Put("/{userId}/approve", controllers.AdminUserApprove(d.UserAdmin, logg))
				r.Put("/{userId}/reject", controllers.AdminUserReject(d.UserAdmin, logg))
				r.Put("/{userId}/status", controllers.AdminUserStatus(d.UserAdmin, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(d.Orders, logg))
				r.Put("/{orderId}/status", controllers.AdminOrderStatus(d.Orders, logg))
			})
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", controllers.TransactionList(d.Transactions, logg))
				r.Get("/{transactionId}", controllers.TransactionGet(d.Transactions, logg))
				r.Put("/{transactionId}/approve", controllers.AdminTransactionApprove(d.Transactions, logg))
				r.Put("/{transactionId}/reject", controllers.AdminTransactionReject(d.Transactions, logg))
				r.Post("/{transactionId}/notes", controllers.TransactionAddNote(d.Transactions, logg))
			})
		})
	})

	return r
}
