package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// PaymentEvent is an append-only audit row. Every inbound provider
// notification that touches a transaction lands here, including duplicates
// that the reconciler discarded and webhook calls that failed verification.
type PaymentEvent struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID *string                `gorm:"column:transaction_id;index"`
	Provider      enums.PaymentProvider  `gorm:"column:provider;type:payment_provider;not null"`
	EventType     enums.PaymentEventType `gorm:"column:event_type;type:payment_event_type;not null"`
	RawPayload    []byte                 `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
