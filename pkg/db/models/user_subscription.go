package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// UserSubscription is a settlement effect row. The unique transaction_id
// index is the hard guarantee that one payment activates at most one
// subscription no matter how many times its success event is delivered.
type UserSubscription struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID        uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	TransactionID string                   `gorm:"column:transaction_id;not null;unique"`
	Status        enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	StartsAt      time.Time                `gorm:"column:starts_at;not null"`
	EndsAt        time.Time                `gorm:"column:ends_at;not null"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
