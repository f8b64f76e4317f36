package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/internal/repo"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
	"github.com/bannersonthefly/banners-backend/pkg/pagination"
)

// Repository provides persistence for placed orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, now time.Time) (int64, error)
	SetTracking(ctx context.Context, id uuid.UUID, trackingNumber string, now time.Time) error
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository builds the gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: repo.NewBase(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) ListByEmail(ctx context.Context, email string, limit int) ([]models.Order, error) {
	limit = pagination.NormalizeLimit(limit)
	var orders []models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order between lifecycle states. The from guard
// makes concurrent transitions race-safe; zero rows means the order was
// not in the expected state.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) SetTracking(ctx context.Context, id uuid.UUID, trackingNumber string, now time.Time) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tracking_number": trackingNumber,
			"updated_at":      now,
		}).Error
}
