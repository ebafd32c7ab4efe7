package models

import (
	"time"

	"github.com/google/uuid"
)

// TemplatePurchase grants a user permanent access to one wedding template.
// Like UserSubscription it is keyed uniquely by transaction_id so replayed
// success events cannot grant twice.
type TemplatePurchase struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	TemplateID    uuid.UUID `gorm:"column:template_id;type:uuid;not null"`
	TransactionID string    `gorm:"column:transaction_id;not null;unique"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
