// Package bakongwebhook normalizes verified instant-payment-network events
// into settlement transitions. Signature verification happens at the HTTP
// layer before anything here runs.
package bakongwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/internal/webhooks"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

type reconciler interface {
	Apply(ctx context.Context, event settlement.NormalizedEvent) (settlement.Outcome, error)
}

// envelope mirrors the provider's webhook body. Type and data placement vary
// between firmware versions, so both spellings of each are accepted.
type envelope struct {
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`

	// Flat variant: payment fields directly on the envelope.
	TransactionID string `json:"transactionId"`
	ID            string `json:"id"`
}

type payload struct {
	TransactionID string `json:"transactionId"`
	ID            string `json:"id"`
}

type ServiceParams struct {
	Reconciler reconciler
	Guard      *webhooks.IdempotencyGuard
	Logger     *logger.Logger
}

type Service struct {
	reconciler reconciler
	guard      *webhooks.IdempotencyGuard
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	return &Service{
		reconciler: params.Reconciler,
		guard:      params.Guard,
		logg:       params.Logger,
	}, nil
}

// HandleEvent maps one verified webhook body onto the settlement state
// machine. Unknown event types are acknowledged untouched.
func (s *Service) HandleEvent(ctx context.Context, body []byte) (settlement.Outcome, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode bakong webhook body")
	}

	eventType := env.Type
	if eventType == "" {
		eventType = env.EventType
	}

	var kind settlement.EventKind
	switch {
	case strings.HasSuffix(eventType, ".completed"):
		kind = settlement.EventSucceeded
	case strings.HasSuffix(eventType, ".failed"):
		kind = settlement.EventFailed
	case strings.HasSuffix(eventType, ".expired"):
		kind = settlement.EventExpired
	default:
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("ignoring bakong event type %q", eventType))
		}
		return settlement.OutcomeIgnored, nil
	}

	transactionID := s.transactionID(env)
	if transactionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "bakong webhook carries no transaction id")
	}

	// The provider sends no event id, so the duplicate claim is keyed on
	// transaction plus outcome.
	claim := transactionID + ":" + kind.String()
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, claim)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("idempotency guard unavailable: %v", err))
			}
		} else if seen {
			return settlement.OutcomeDuplicate, nil
		}
	}

	outcome, err := s.reconciler.Apply(ctx, settlement.NormalizedEvent{
		Kind:          kind,
		TransactionID: transactionID,
		Provider:      enums.PaymentProviderBakong,
		Raw:           body,
	})
	if err != nil && s.guard != nil {
		if delErr := s.guard.Delete(ctx, claim); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release idempotency claim: %v", delErr))
		}
	}
	return outcome, err
}

func (s *Service) transactionID(env envelope) string {
	if len(env.Data) > 0 {
		var data payload
		if err := json.Unmarshal(env.Data, &data); err == nil {
			if data.TransactionID != "" {
				return data.TransactionID
			}
			if data.ID != "" {
				return data.ID
			}
		}
	}
	if env.TransactionID != "" {
		return env.TransactionID
	}
	return env.ID
}
