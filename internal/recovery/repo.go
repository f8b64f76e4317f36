package recovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/internal/repo"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
)

// Repository exposes persistence helpers for the abandoned-cart funnel.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.AbandonedCart, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*models.AbandonedCart, error)
	FindRecoverable(ctx context.Context, userID *uuid.UUID, email string) (*models.AbandonedCart, error)
	Create(ctx context.Context, cart *models.AbandonedCart) error
	UpdateSnapshot(ctx context.Context, cart *models.AbandonedCart, now time.Time) error
	ListNewlyAbandoned(ctx context.Context, now time.Time, abandonAfter, horizon time.Duration) ([]models.AbandonedCart, error)
	ListDueForEmail(ctx context.Context, sequence int, now time.Time, after, before time.Duration) ([]models.AbandonedCart, error)
	MarkAbandoned(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
	MarkEngaged(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
	MarkRecovered(ctx context.Context, id, orderID uuid.UUID, now time.Time) (int64, error)
	ExpireStale(ctx context.Context, now time.Time, expireAfter time.Duration) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	RecordEmailSent(ctx context.Context, id uuid.UUID, sequence int, now time.Time) error
	AppendLog(ctx context.Context, log *models.CartRecoveryLog) error
	List(ctx context.Context, limit int) ([]models.AbandonedCart, error)
	Stats(ctx context.Context) (*FunnelStats, error)
}

// FunnelStats aggregates recovery outcomes for the admin dashboard.
type FunnelStats struct {
	ActiveCount              int64 `json:"activeCount"`
	AbandonedCount           int64 `json:"abandonedCount"`
	EngagedCount             int64 `json:"engagedCount"`
	RecoveredCount           int64 `json:"recoveredCount"`
	RecoveredFromEmailsCount int64 `json:"recoveredFromEmailsCount"`
	RecoveredValueCents      int64 `json:"recoveredValueCents"`
	RecoveredFromEmailsValue int64 `json:"recoveredFromEmailsValueCents"`
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a recovery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: repo.NewBase(tx)}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	if err := r.DB(ctx).Where("id = ?", id).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	err := r.DB(ctx).
		Where("user_id = ? AND recovery_status = ?", userID, enums.RecoveryStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) FindActiveBySession(ctx context.Context, sessionID string) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	err := r.DB(ctx).
		Where("session_id = ? AND recovery_status = ?", sessionID, enums.RecoveryStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindRecoverable locates the shopper's cart still eligible for recovery
// attribution, matched by user id first and email second.
func (r *repositoryImpl) FindRecoverable(ctx context.Context, userID *uuid.UUID, email string) (*models.AbandonedCart, error) {
	recoverable := []enums.RecoveryStatus{
		enums.RecoveryStatusActive,
		enums.RecoveryStatusAbandoned,
		enums.RecoveryStatusEngaged,
	}
	var cart models.AbandonedCart
	query := r.DB(ctx).Where("recovery_status IN ?", recoverable)
	switch {
	case userID != nil:
		query = query.Where("user_id = ?", *userID)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	err := query.Order("last_activity_at DESC").First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) Create(ctx context.Context, cart *models.AbandonedCart) error {
	return r.DB(ctx).Create(cart).Error
}

func (r *repositoryImpl) UpdateSnapshot(ctx context.Context, cart *models.AbandonedCart, now time.Time) error {
	return r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]any{
			"email":             cart.Email,
			"phone":             cart.Phone,
			"cart_contents":     cart.CartContents,
			"total_value_cents": cart.TotalValueCents,
			"last_activity_at":  now,
			"updated_at":        now,
		}).Error
}

// ListNewlyAbandoned finds active carts idle past the abandonment threshold but
// still inside the detection horizon, with a contactable email and value.
func (r *repositoryImpl) ListNewlyAbandoned(ctx context.Context, now time.Time, abandonAfter, horizon time.Duration) ([]models.AbandonedCart, error) {
	var carts []models.AbandonedCart
	err := r.DB(ctx).
		Where("recovery_status = ?", enums.RecoveryStatusActive).
		Where("last_activity_at < ?", now.Add(-abandonAfter)).
		Where("last_activity_at > ?", now.Add(-horizon)).
		Where("total_value_cents > 0").
		Where("email <> ''").
		Order("last_activity_at DESC").
		Find(&carts).Error
	return carts, err
}

// ListDueForEmail finds abandoned carts ready for follow-up email `sequence`,
// skipping carts whose shopper already clicked an earlier email.
func (r *repositoryImpl) ListDueForEmail(ctx context.Context, sequence int, now time.Time, after, before time.Duration) ([]models.AbandonedCart, error) {
	var carts []models.AbandonedCart
	err := r.DB(ctx).
		Where("recovery_status = ?", enums.RecoveryStatusAbandoned).
		Where("abandoned_at < ?", now.Add(-after)).
		Where("abandoned_at > ?", now.Add(-before)).
		Where("recovery_emails_sent = ?", sequence-1).
		Where("email <> ''").
		Where("NOT EXISTS (SELECT 1 FROM cart_recovery_logs WHERE cart_recovery_logs.abandoned_cart_id = abandoned_carts.id AND cart_recovery_logs.event_type = ?)", enums.RecoveryEventTypeEmailClicked).
		Find(&carts).Error
	return carts, err
}

func (r *repositoryImpl) MarkAbandoned(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND recovery_status = ?", id, enums.RecoveryStatusActive).
		Updates(map[string]any{
			"recovery_status": enums.RecoveryStatusAbandoned,
			"abandoned_at":    now,
			"updated_at":      now,
		})
	return result.RowsAffected, result.Error
}

// MarkEngaged promotes abandoned carts whose shopper clicked a recovery email.
// The guard makes the transition idempotent and keeps recovered/expired carts
// untouched.
func (r *repositoryImpl) MarkEngaged(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND recovery_status = ?", id, enums.RecoveryStatusAbandoned).
		Updates(map[string]any{
			"recovery_status": enums.RecoveryStatusEngaged,
			"updated_at":      now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkRecovered(ctx context.Context, id, orderID uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND recovery_status <> ?", id, enums.RecoveryStatusRecovered).
		Updates(map[string]any{
			"recovery_status":    enums.RecoveryStatusRecovered,
			"recovered_at":       now,
			"recovered_order_id": orderID,
			"updated_at":         now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ExpireStale(ctx context.Context, now time.Time, expireAfter time.Duration) (int64, error) {
	result := r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("recovery_status = ? AND abandoned_at < ?", enums.RecoveryStatusAbandoned, now.Add(-expireAfter)).
		Updates(map[string]any{
			"recovery_status": enums.RecoveryStatusExpired,
			"updated_at":      now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.DB(ctx).
		Where("recovery_status = ? AND updated_at < ?", enums.RecoveryStatusExpired, cutoff).
		Delete(&models.AbandonedCart{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) RecordEmailSent(ctx context.Context, id uuid.UUID, sequence int, now time.Time) error {
	return r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"recovery_emails_sent": sequence,
			"updated_at":           now,
		}).Error
}

func (r *repositoryImpl) AppendLog(ctx context.Context, log *models.CartRecoveryLog) error {
	return r.DB(ctx).Create(log).Error
}

func (r *repositoryImpl) List(ctx context.Context, limit int) ([]models.AbandonedCart, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var carts []models.AbandonedCart
	err := r.DB(ctx).
		Where("recovery_status IN ?", []enums.RecoveryStatus{
			enums.RecoveryStatusActive,
			enums.RecoveryStatusAbandoned,
			enums.RecoveryStatusEngaged,
			enums.RecoveryStatusRecovered,
		}).
		Order("abandoned_at DESC, last_activity_at DESC").
		Limit(limit).
		Find(&carts).Error
	return carts, err
}

func (r *repositoryImpl) Stats(ctx context.Context) (*FunnelStats, error) {
	stats := &FunnelStats{}

	type statusCount struct {
		RecoveryStatus enums.RecoveryStatus
		Count          int64
	}
	var counts []statusCount
	err := r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Select("recovery_status, COUNT(*) AS count").
		Group("recovery_status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, row := range counts {
		switch row.RecoveryStatus {
		case enums.RecoveryStatusActive:
			stats.ActiveCount = row.Count
		case enums.RecoveryStatusAbandoned:
			stats.AbandonedCount = row.Count
		case enums.RecoveryStatusEngaged:
			stats.EngagedCount = row.Count
		case enums.RecoveryStatusRecovered:
			stats.RecoveredCount = row.Count
		}
	}

	type recoveredAgg struct {
		Count int64
		Value int64
	}
	var fromEmails recoveredAgg
	err = r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_value_cents), 0) AS value").
		Where("recovery_status = ? AND recovery_emails_sent > 0", enums.RecoveryStatusRecovered).
		Scan(&fromEmails).Error
	if err != nil {
		return nil, err
	}
	stats.RecoveredFromEmailsCount = fromEmails.Count
	stats.RecoveredFromEmailsValue = fromEmails.Value

	var total recoveredAgg
	err = r.DB(ctx).
		Model(&models.AbandonedCart{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_value_cents), 0) AS value").
		Where("recovery_status = ?", enums.RecoveryStatusRecovered).
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	stats.RecoveredValueCents = total.Value

	return stats, nil
}
