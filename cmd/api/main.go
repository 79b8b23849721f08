package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/printdock/printdock-backend/api/controllers"
	"github.com/printdock/printdock-backend/api/routes"
	"github.com/printdock/printdock-backend/internal/auth"
	"github.com/printdock/printdock-backend/internal/batchimports"
	"github.com/printdock/printdock-backend/internal/orders"
	"github.com/printdock/printdock-backend/internal/pricing"
	"github.com/printdock/printdock-backend/internal/products"
	"github.com/printdock/printdock-backend/internal/transactions"
	"github.com/printdock/printdock-backend/internal/uploads"
	"github.com/printdock/printdock-backend/internal/users"
	"github.com/printdock/printdock-backend/pkg/auth/session"
	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/db"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/metrics"
	"github.com/printdock/printdock-backend/pkg/migrate"
	"github.com/printdock/printdock-backend/pkg/outbox"
	"github.com/printdock/printdock-backend/pkg/redis"
	"github.com/printdock/printdock-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForService("api", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := dbClient.RegisterMetrics(prometheus.DefaultRegisterer, "api"); err != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "db pool metrics not registered")
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	txRepo := transactions.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	storeMetrics := metrics.NewStoreMetrics(prometheus.DefaultRegisterer)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		ResetTokens:    redisClient,
		Outbox:         emitter,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	exitOnErr(logg, "auth service", err)

	productService, err := products.NewService(products.ServiceParams{
		DB:     dbClient,
		Repo:   productRepo,
		Logger: logg,
	})
	exitOnErr(logg, "products service", err)

	uploadService, err := uploads.NewService(gcsClient.BucketHandle(""), cfg.Uploads, logg)
	exitOnErr(logg, "uploads service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		DB:           dbClient,
		Repo:         orders.NewRepository(conn),
		Products:     productRepo,
		Users:        userRepo,
		Transactions: txRepo,
		Engine:       pricing.NewEngine(cfg.Pricing),
		Outbox:       emitter,
		Metrics:      storeMetrics,
		Logger:       logg,
	})
	exitOnErr(logg, "orders service", err)

	batchService, err := batchimports.NewService(batchimports.ServiceParams{
		DB:       dbClient,
		Repo:     batchimports.NewRepository(conn),
		Products: productRepo,
		Orders:   orderService,
		Outbox:   emitter,
		Metrics:  storeMetrics,
		Logger:   logg,
	})
	exitOnErr(logg, "batch import service", err)

	transactionService, err := transactions.NewService(transactions.ServiceParams{
		DB:       dbClient,
		Repo:     txRepo,
		UserRepo: userRepo,
		Outbox:   emitter,
		Metrics:  storeMetrics,
		Logger:   logg,
	})
	exitOnErr(logg, "transactions service", err)

	userAdminService, err := users.NewAdminService(users.AdminServiceParams{
		DB:     dbClient,
		Repo:   userRepo,
		Outbox: emitter,
		Logger: logg,
	})
	exitOnErr(logg, "user admin service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Sessions: sessionManager,
		Cache:    redisClient,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"gcs":      gcsClient,
		},
		Auth:         authService,
		Products:     productService,
		Uploads:      uploadService,
		Orders:       orderService,
		BatchImports: batchService,
		Transactions: transactionService,
		UserAdmin:    userAdminService,
		HTTPMetrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer:     prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnErr(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}
