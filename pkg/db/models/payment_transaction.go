package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// PaymentTransaction is the durable record of a single payment attempt.
// TransactionID is generated at session start and never changes; rows are
// retained forever and only the reconciler moves status forward.
type PaymentTransaction struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID string                `gorm:"column:transaction_id;not null;unique"`
	ProviderRef   *string               `gorm:"column:provider_ref;unique"`
	Provider      enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null"`
	Purpose       enums.PaymentPurpose  `gorm:"column:purpose;type:payment_purpose;not null"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID        *uuid.UUID            `gorm:"column:plan_id;type:uuid"`
	TemplateID    *uuid.UUID            `gorm:"column:template_id;type:uuid"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency        `gorm:"column:currency;not null"`
	Status        enums.PaymentStatus   `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Description   *string               `gorm:"column:description"`
	ExpiresAt     *time.Time            `gorm:"column:expires_at"`
	SettledAt     *time.Time            `gorm:"column:settled_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
