package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bannersonthefly/banners-backend/api/routes"
	"github.com/bannersonthefly/banners-backend/internal/cart"
	"github.com/bannersonthefly/banners-backend/internal/discounts"
	"github.com/bannersonthefly/banners-backend/internal/orders"
	"github.com/bannersonthefly/banners-backend/internal/recovery"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db"
	"github.com/bannersonthefly/banners-backend/pkg/email"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/metrics"
	"github.com/bannersonthefly/banners-backend/pkg/migrate"
	"github.com/bannersonthefly/banners-backend/pkg/redis"
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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	emailClient, err := email.NewClient(cfg.Email.APIKey, email.WithBaseURL(cfg.Email.BaseURL))
	if err != nil {
		logg.Error(context.Background(), "failed to create email client", err)
		os.Exit(1)
	}

	recoveryMetrics := metrics.NewRecoveryMetrics(prometheus.DefaultRegisterer)

	discountService, err := discounts.NewService(discounts.ServiceParams{
		Logger:  logg,
		Repo:    discounts.NewRepository(dbClient.DB()),
		DB:      dbClient,
		Promo:   cfg.Promo,
		Metrics: recoveryMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create discounts service", err)
		os.Exit(1)
	}

	recoveryService, err := recovery.NewService(recovery.ServiceParams{
		Logger:    logg,
		Repo:      recovery.NewRepository(dbClient.DB()),
		DB:        dbClient,
		Discounts: discountService,
		Email:     emailClient,
		Recovery:  cfg.Recovery,
		Site:      cfg.Email,
		Metrics:   recoveryMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recovery service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Logger:    logg,
		Repo:      orders.NewRepository(dbClient.DB()),
		DB:        dbClient,
		Discounts: discountService,
		Recovery:  recoveryService,
		Checkout:  cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Logger:    logg,
		Discounts: discountService,
		Recovery:  recoveryService,
		Checkout:  cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Cart:      cartService,
			Discounts: discountService,
			Orders:    orderService,
			Recovery:  recoveryService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
