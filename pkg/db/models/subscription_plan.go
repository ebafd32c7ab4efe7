package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// SubscriptionPlan is a purchasable tier. Prices are stored in USD and
// converted to KHR at charge time when the buyer pays over QR.
type SubscriptionPlan struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	PriceUSD     decimal.Decimal    `gorm:"column:price_usd;type:numeric(12,2);not null"`
	BillingCycle enums.BillingCycle `gorm:"column:billing_cycle;type:billing_cycle;not null"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
