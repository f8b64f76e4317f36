package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/metrics"
)

type cartExpirer interface {
	ExpireStale(ctx context.Context, now time.Time, expireAfter time.Duration) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartExpirationJobParams configure the retention sweep.
type CartExpirationJobParams struct {
	Logger   *logger.Logger
	Repo     cartExpirer
	Recovery config.RecoveryConfig
	Metrics  *metrics.RecoveryMetrics
}

// NewCartExpirationJob builds the job that expires carts past the
// recovery window and hard-deletes expired rows past retention.
func NewCartExpirationJob(params CartExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("recovery repository required")
	}
	return &cartExpirationJob{
		logg:    params.Logger,
		repo:    params.Repo,
		cfg:     params.Recovery,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type cartExpirationJob struct {
	logg    *logger.Logger
	repo    cartExpirer
	cfg     config.RecoveryConfig
	metrics *metrics.RecoveryMetrics
	now     func() time.Time
}

func (j *cartExpirationJob) Name() string { return "cart-expiration" }

func (j *cartExpirationJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs []error

	expired, err := j.repo.ExpireStale(ctx, now, j.cfg.ExpireAfter)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire stale carts: %w", err))
	} else if j.metrics != nil {
		for i := int64(0); i < expired; i++ {
			j.metrics.IncExpired()
		}
	}

	deleted, err := j.repo.DeleteExpiredBefore(ctx, now.Add(-j.cfg.DeleteAfter))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired carts: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"expired": expired, "deleted": deleted})
	j.logg.Info(logCtx, "cart expiration loop complete")
	return multierr.Combine(errs...)
}
