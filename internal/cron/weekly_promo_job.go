package cron

import (
	"context"
	"fmt"

	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

type promoSeeder interface {
	SeedWeeklyPromo(ctx context.Context) (*models.DiscountCode, error)
}

// WeeklyPromoJobParams configure the promo reseed job.
type WeeklyPromoJobParams struct {
	Logger    *logger.Logger
	Discounts promoSeeder
}

// NewWeeklyPromoJob builds the job that keeps the sitewide weekly promo
// code live, rolling its expiry to the end of the current week.
func NewWeeklyPromoJob(params WeeklyPromoJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discounts service required")
	}
	return &weeklyPromoJob{
		logg:      params.Logger,
		discounts: params.Discounts,
	}, nil
}

type weeklyPromoJob struct {
	logg      *logger.Logger
	discounts promoSeeder
}

func (j *weeklyPromoJob) Name() string { return "weekly-promo" }

func (j *weeklyPromoJob) Run(ctx context.Context) error {
	code, err := j.discounts.SeedWeeklyPromo(ctx)
	if err != nil {
		return fmt.Errorf("seed weekly promo: %w", err)
	}
	logCtx := j.logg.WithDiscountCode(ctx, code.Code)
	j.logg.Info(logCtx, "weekly promo reseeded")
	return nil
}
