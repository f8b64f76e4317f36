package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/internal/repo"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
)

// Repository exposes persistence helpers for discount codes and the
// abandoned-cart rows they are linked to.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, code *models.DiscountCode) error
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	FindCart(ctx context.Context, cartID uuid.UUID) (*models.AbandonedCart, error)
	LinkCartCode(ctx context.Context, cartID uuid.UUID, code string, now time.Time) error
	RefreshExpiry(ctx context.Context, code string, expiresAt, now time.Time) (int64, error)
	RedeemSingleUse(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, now time.Time) (*models.DiscountCode, error)
	RedeemPerCustomer(ctx context.Context, code, email string, orderID uuid.UUID, now time.Time) (int64, error)
	MarkCartRecovered(ctx context.Context, cartID, orderID uuid.UUID, now time.Time) (int64, error)
	AppendRecoveryLog(ctx context.Context, log *models.CartRecoveryLog) error
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a discounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: repo.NewBase(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, code *models.DiscountCode) error {
	return r.DB(ctx).Create(code).Error
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var record models.DiscountCode
	err := r.DB(ctx).Where("code = ?", code).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) FindCart(ctx context.Context, cartID uuid.UUID) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	err := r.DB(ctx).Where("id = ?", cartID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) LinkCartCode(ctx context.Context, cartID uuid.UUID, code string, now time.Time) error {
	return r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"discount_code": code, "updated_at": now}).Error
}

func (r *repositoryImpl) RefreshExpiry(ctx context.Context, code string, expiresAt, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.DiscountCode{}).
		Where("code = ?", code).
		Updates(map[string]any{"expires_at": expiresAt, "updated_at": now})
	return result.RowsAffected, result.Error
}

// RedeemSingleUse flips `used` with a conditional UPDATE. Zero affected rows
// means another request won the race (or the code never existed) and the
// redemption must be rejected.
func (r *repositoryImpl) RedeemSingleUse(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, now time.Time) (*models.DiscountCode, error) {
	result := r.DB(ctx).
		Model(&models.DiscountCode{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]any{
			"used":            true,
			"used_at":         now,
			"used_by_user_id": userID,
			"order_id":        orderID,
			"updated_at":      now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByCode(ctx, code)
}

// RedeemPerCustomer appends the customer email to used_by_email, guarded so a
// repeat email changes zero rows. Postgres-only array semantics.
func (r *repositoryImpl) RedeemPerCustomer(ctx context.Context, code, email string, orderID uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).Exec(
		`UPDATE discount_codes
		 SET used_by_email = array_append(COALESCE(used_by_email, '{}'), ?),
		     used_at = ?, order_id = ?, updated_at = ?
		 WHERE code = ? AND NOT (? = ANY(COALESCE(used_by_email, '{}')))`,
		email, now, orderID, now, code, email,
	)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkCartRecovered(ctx context.Context, cartID, orderID uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND recovery_status <> ?", cartID, enums.RecoveryStatusRecovered).
		Updates(map[string]any{
			"recovery_status":    enums.RecoveryStatusRecovered,
			"recovered_at":       now,
			"recovered_order_id": orderID,
			"updated_at":         now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) AppendRecoveryLog(ctx context.Context, log *models.CartRecoveryLog) error {
	return r.DB(ctx).Create(log).Error
}
