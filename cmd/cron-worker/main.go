package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bannersonthefly/banners-backend/internal/cron"
	"github.com/bannersonthefly/banners-backend/internal/discounts"
	"github.com/bannersonthefly/banners-backend/internal/recovery"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db"
	"github.com/bannersonthefly/banners-backend/pkg/email"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/metrics"
	"github.com/bannersonthefly/banners-backend/pkg/migrate"
	"github.com/bannersonthefly/banners-backend/pkg/redis"
)

const lockKeyFormat = "bof:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	recoveryMetrics := metrics.NewRecoveryMetrics(prometheus.DefaultRegisterer)

	recoveryRepo := recovery.NewRepository(dbClient.DB())

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
		Repo:      recoveryRepo,
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

	abandonmentJob, err := cron.NewCartAbandonmentJob(cron.CartAbandonmentJobParams{
		Logger:   logg,
		Repo:     recoveryRepo,
		Emails:   recoveryService,
		Recovery: cfg.Recovery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart abandonment job", err)
		os.Exit(1)
	}

	expirationJob, err := cron.NewCartExpirationJob(cron.CartExpirationJobParams{
		Logger:   logg,
		Repo:     recoveryRepo,
		Recovery: cfg.Recovery,
		Metrics:  recoveryMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart expiration job", err)
		os.Exit(1)
	}

	promoJob, err := cron.NewWeeklyPromoJob(cron.WeeklyPromoJobParams{
		Logger:    logg,
		Discounts: discountService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create weekly promo job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(abandonmentJob, expirationJob, promoJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Recovery.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, logg, cfg.App.MetricsPort)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	logg.Info(ctx, "serving prometheus metrics on :"+port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
