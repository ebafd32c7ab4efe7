package enums

import "fmt"

// PaymentEventType labels append-only audit rows for a payment transaction.
type PaymentEventType string

const (
	PaymentEventCreated       PaymentEventType = "created"
	PaymentEventSucceeded     PaymentEventType = "succeeded"
	PaymentEventFailed        PaymentEventType = "failed"
	PaymentEventExpired       PaymentEventType = "expired"
	PaymentEventStatusChecked PaymentEventType = "status_checked"
	PaymentEventAuthFailed    PaymentEventType = "auth_failed"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventCreated,
	PaymentEventSucceeded,
	PaymentEventFailed,
	PaymentEventExpired,
	PaymentEventStatusChecked,
	PaymentEventAuthFailed,
}

// IsValid reports whether the value is a known PaymentEventType.
func (t PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePaymentEventType converts raw input into a PaymentEventType.
func ParsePaymentEventType(value string) (PaymentEventType, error) {
	for _, candidate := range validPaymentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
