package bakong

import (
	"strings"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// MapStatus folds the provider's status taxonomy into the internal one.
// Unknown values map to pending so a new provider status never flips a
// transaction into a terminal state by accident.
func MapStatus(raw string) enums.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING", "PROCESSING":
		return enums.PaymentStatusPending
	case "SUCCESS", "COMPLETED":
		return enums.PaymentStatusCompleted
	case "FAILED", "CANCELLED", "REJECTED":
		return enums.PaymentStatusFailed
	case "EXPIRED":
		return enums.PaymentStatusExpired
	default:
		return enums.PaymentStatusPending
	}
}
