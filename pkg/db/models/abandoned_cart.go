package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/pkg/enums"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

// AbandonedCart is a snapshot of a shopper cart tracked for recovery outreach.
// Guests carry a SessionID only; signed-in shoppers carry a UserID.
type AbandonedCart struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             *uuid.UUID           `gorm:"column:user_id;type:uuid;index"`
	SessionID          *string              `gorm:"column:session_id;index"`
	Email              string               `gorm:"column:email;not null;index"`
	Phone              *string              `gorm:"column:phone"`
	CartContents       types.CartSnapshot   `gorm:"column:cart_contents;type:jsonb;serializer:json"`
	TotalValueCents    int                  `gorm:"column:total_value_cents;not null;default:0"`
	RecoveryStatus     enums.RecoveryStatus `gorm:"column:recovery_status;type:recovery_status;not null;default:'active';index"`
	RecoveryEmailsSent int                  `gorm:"column:recovery_emails_sent;not null;default:0"`
	DiscountCode       *string              `gorm:"column:discount_code"`
	LastActivityAt     time.Time            `gorm:"column:last_activity_at;not null;index"`
	AbandonedAt        *time.Time           `gorm:"column:abandoned_at"`
	RecoveredAt        *time.Time           `gorm:"column:recovered_at"`
	RecoveredOrderID   *uuid.UUID           `gorm:"column:recovered_order_id;type:uuid"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
