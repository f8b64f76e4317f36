package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DiscountCode is a single generated discount, either percentage or fixed-amount.
// A database CHECK guarantees exactly one of DiscountPercentage/DiscountAmountCents
// is set.
type DiscountCode struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                string         `gorm:"column:code;not null;uniqueIndex"`
	DiscountPercentage  *int           `gorm:"column:discount_percentage"`
	DiscountAmountCents *int           `gorm:"column:discount_amount_cents"`
	CartID              *uuid.UUID     `gorm:"column:cart_id;type:uuid"`
	OrderID             *uuid.UUID     `gorm:"column:order_id;type:uuid"`
	SingleUse           bool           `gorm:"column:single_use;not null;default:true"`
	Used                bool           `gorm:"column:used;not null;default:false"`
	UsedAt              *time.Time     `gorm:"column:used_at"`
	UsedByUserID        *uuid.UUID     `gorm:"column:used_by_user_id;type:uuid"`
	UsedByEmail         pq.StringArray `gorm:"column:used_by_email;type:text[]"`
	MaxUsesPerCustomer  int            `gorm:"column:max_uses_per_customer;not null;default:1"`
	MaxTotalUses        *int           `gorm:"column:max_total_uses"`
	ExpiresAt           *time.Time     `gorm:"column:expires_at"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the code is past its expiry at the given instant.
func (d DiscountCode) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// UsedByCustomer reports whether the given email already redeemed this code.
func (d DiscountCode) UsedByCustomer(email string) bool {
	for _, used := range d.UsedByEmail {
		if used == email {
			return true
		}
	}
	return false
}
