package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/pkg/enums"
)

// Order is a placed banner order with totals frozen at checkout.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string            `gorm:"column:order_number;not null;uniqueIndex"`
	Email          string            `gorm:"column:email;not null;index"`
	UserID         *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	Status         enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	SubtotalCents  int               `gorm:"column:subtotal_cents;not null;default:0"`
	DiscountsCents int               `gorm:"column:discounts_cents;not null;default:0"`
	DiscountCode   *string           `gorm:"column:discount_code"`
	TaxCents       int               `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents  int               `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents     int               `gorm:"column:total_cents;not null;default:0"`
	TrackingNumber *string           `gorm:"column:tracking_number"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
