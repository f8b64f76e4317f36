package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/internal/recovery"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// abandonedCartFunnel is the slice of the recovery repository the
// abandonment job touches.
type abandonedCartFunnel interface {
	ListNewlyAbandoned(ctx context.Context, now time.Time, abandonAfter, horizon time.Duration) ([]models.AbandonedCart, error)
	ListDueForEmail(ctx context.Context, sequence int, now time.Time, after, before time.Duration) ([]models.AbandonedCart, error)
	MarkAbandoned(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
}

type recoveryEmailer interface {
	SendRecoveryEmail(ctx context.Context, cartID uuid.UUID, sequence int) (*recovery.SendResult, error)
}

// CartAbandonmentJobParams configure the recovery funnel sweep.
type CartAbandonmentJobParams struct {
	Logger   *logger.Logger
	Repo     abandonedCartFunnel
	Emails   recoveryEmailer
	Recovery config.RecoveryConfig
}

// NewCartAbandonmentJob builds the job that flips idle carts to
// abandoned and walks them through the three-email sequence.
func NewCartAbandonmentJob(params CartAbandonmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("recovery repository required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("recovery emailer required")
	}
	return &cartAbandonmentJob{
		logg:   params.Logger,
		repo:   params.Repo,
		emails: params.Emails,
		cfg:    params.Recovery,
		now:    time.Now,
	}, nil
}

type cartAbandonmentJob struct {
	logg   *logger.Logger
	repo   abandonedCartFunnel
	emails recoveryEmailer
	cfg    config.RecoveryConfig
	now    func() time.Time
}

func (j *cartAbandonmentJob) Name() string { return "cart-abandonment" }

func (j *cartAbandonmentJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.detectNewlyAbandoned(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.sendFollowUp(ctx, 2, j.cfg.SecondEmailAfter, j.cfg.ThirdEmailAfter); err != nil {
		errs = append(errs, err)
	}
	if err := j.sendFollowUp(ctx, 3, j.cfg.ThirdEmailAfter, j.cfg.ExpireAfter); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// detectNewlyAbandoned flips idle active carts to abandoned and sends
// the first reminder email. A cart that fails to email stays abandoned
// and is retried on the next cycle by the sequence windows.
func (j *cartAbandonmentJob) detectNewlyAbandoned(ctx context.Context) error {
	now := j.now().UTC()
	carts, err := j.repo.ListNewlyAbandoned(ctx, now, j.cfg.AbandonAfter, j.cfg.DetectionHorizon)
	if err != nil {
		return fmt.Errorf("query idle carts: %w", err)
	}

	marked, emailed := 0, 0
	var errs []error
	for _, cart := range carts {
		rows, err := j.repo.MarkAbandoned(ctx, cart.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("mark cart %s abandoned: %w", cart.ID, err))
			continue
		}
		if rows == 0 {
			// Lost the race to another worker.
			continue
		}
		marked++
		if _, err := j.emails.SendRecoveryEmail(ctx, cart.ID, 1); err != nil {
			errs = append(errs, fmt.Errorf("send first email for cart %s: %w", cart.ID, err))
			continue
		}
		emailed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"marked": marked, "emailed": emailed})
	j.logg.Info(logCtx, "abandonment detection loop complete")
	return multierr.Combine(errs...)
}

func (j *cartAbandonmentJob) sendFollowUp(ctx context.Context, sequence int, after, before time.Duration) error {
	now := j.now().UTC()
	carts, err := j.repo.ListDueForEmail(ctx, sequence, now, after, before)
	if err != nil {
		return fmt.Errorf("query carts due for email %d: %w", sequence, err)
	}

	emailed := 0
	var errs []error
	for _, cart := range carts {
		if _, err := j.emails.SendRecoveryEmail(ctx, cart.ID, sequence); err != nil {
			errs = append(errs, fmt.Errorf("send email %d for cart %s: %w", sequence, cart.ID, err))
			continue
		}
		emailed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"sequence": sequence, "emailed": emailed})
	j.logg.Info(logCtx, "follow-up email loop complete")
	return multierr.Combine(errs...)
}
