package models

import (
	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/pkg/types"
)

// OrderItem is one configured banner line on an order.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	SKU            string            `gorm:"column:sku;not null"`
	Title          string            `gorm:"column:title;not null"`
	WidthIn        float64           `gorm:"column:width_in;not null;default:0"`
	HeightIn       float64           `gorm:"column:height_in;not null;default:0"`
	Qty            int               `gorm:"column:qty;not null"`
	UnitPriceCents int               `gorm:"column:unit_price_cents;not null"`
	Options        types.OptionsList `gorm:"column:options;type:jsonb;serializer:json"`
	LineTotalCents int               `gorm:"column:line_total_cents;not null"`
}
