// Package settlement is the reconciliation core. Verified provider events
// flow in as NormalizedEvents; the service applies them to the transaction
// ledger with a conditional write so duplicates and out-of-order deliveries
// are harmless.
package settlement

import (
	"encoding/json"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// EventKind is the closed set of canonical event variants. Adding a kind
// means extending the switch in Apply; the compiler flags anything missed.
type EventKind int

const (
	EventCreated EventKind = iota
	EventSucceeded
	EventFailed
	EventExpired
	EventStatusChecked
)

// String returns the audit-log name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventExpired:
		return "expired"
	case EventStatusChecked:
		return "status_checked"
	default:
		return "unknown"
	}
}

// NormalizedEvent is a provider notification after verification and mapping.
// ObservedStatus is set only for status-check events, which carry whatever
// the provider reported at poll time.
type NormalizedEvent struct {
	Kind           EventKind
	TransactionID  string
	Provider       enums.PaymentProvider
	ObservedStatus enums.PaymentStatus
	Raw            json.RawMessage
}

// eventType maps the kind onto the audit-log event taxonomy.
func (e NormalizedEvent) eventType() enums.PaymentEventType {
	switch e.Kind {
	case EventCreated:
		return enums.PaymentEventCreated
	case EventSucceeded:
		return enums.PaymentEventSucceeded
	case EventFailed:
		return enums.PaymentEventFailed
	case EventExpired:
		return enums.PaymentEventExpired
	case EventStatusChecked:
		return enums.PaymentEventStatusChecked
	default:
		return enums.PaymentEventStatusChecked
	}
}

// targetStatus returns the terminal status this event drives the transaction
// toward, or false when the event carries no transition.
func (e NormalizedEvent) targetStatus() (enums.PaymentStatus, bool) {
	switch e.Kind {
	case EventSucceeded:
		return enums.PaymentStatusCompleted, true
	case EventFailed:
		return enums.PaymentStatusFailed, true
	case EventExpired:
		return enums.PaymentStatusExpired, true
	case EventStatusChecked:
		if e.ObservedStatus.IsTerminal() {
			return e.ObservedStatus, true
		}
		return "", false
	case EventCreated:
		return "", false
	default:
		return "", false
	}
}
