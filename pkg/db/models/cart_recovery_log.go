package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/pkg/enums"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

// CartRecoveryLog is an append-only audit row for the recovery funnel.
type CartRecoveryLog struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AbandonedCartID     uuid.UUID               `gorm:"column:abandoned_cart_id;type:uuid;not null;index"`
	EventType           enums.RecoveryEventType `gorm:"column:event_type;not null"`
	EmailSequenceNumber *int                    `gorm:"column:email_sequence_number"`
	Metadata            types.JSONMap           `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
}
