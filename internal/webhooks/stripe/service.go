// Package stripewebhook normalizes verified card-network events into
// settlement transitions. Signature verification happens at the HTTP layer;
// nothing here runs for a payload that failed it.
package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/internal/webhooks"
	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

type transactionResolver interface {
	FindByProviderRef(ctx context.Context, providerRef string) (*models.PaymentTransaction, error)
}

type reconciler interface {
	Apply(ctx context.Context, event settlement.NormalizedEvent) (settlement.Outcome, error)
}

type ServiceParams struct {
	Transactions transactionResolver
	Reconciler   reconciler
	Guard        *webhooks.IdempotencyGuard
	Logger       *logger.Logger
}

type Service struct {
	transactions transactionResolver
	reconciler   reconciler
	guard        *webhooks.IdempotencyGuard
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction resolver required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	return &Service{
		transactions: params.Transactions,
		reconciler:   params.Reconciler,
		guard:        params.Guard,
		logg:         params.Logger,
	}, nil
}

// HandleEvent maps one verified event onto the settlement state machine.
// Event types outside the closed set are acknowledged untouched so the
// provider stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (settlement.Outcome, error) {
	if event == nil || event.Data == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var kind settlement.EventKind
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		kind = settlement.EventSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		kind = settlement.EventFailed
	case stripe.EventTypePaymentIntentCanceled:
		kind = settlement.EventFailed
	default:
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("ignoring stripe event type %s", event.Type))
		}
		return settlement.OutcomeIgnored, nil
	}

	if s.guard != nil && event.ID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// The conditional write downstream keeps duplicates safe, so a
			// guard outage only costs a redundant reconcile.
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("idempotency guard unavailable: %v", err))
			}
		} else if seen {
			return settlement.OutcomeDuplicate, nil
		}
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}

	transactionID, err := s.resolveTransactionID(ctx, &intent)
	if err != nil {
		return "", err
	}

	outcome, err := s.reconciler.Apply(ctx, settlement.NormalizedEvent{
		Kind:          kind,
		TransactionID: transactionID,
		Provider:      enums.PaymentProviderStripe,
		Raw:           event.Data.Raw,
	})
	if err != nil && s.guard != nil && event.ID != "" {
		// Release the claim so the provider's retry gets another shot.
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release idempotency claim: %v", delErr))
		}
	}
	return outcome, err
}

// resolveTransactionID prefers the metadata tag written at intent creation
// and falls back to the provider_ref column for intents created before the
// tag existed.
func (s *Service) resolveTransactionID(ctx context.Context, intent *stripe.PaymentIntent) (string, error) {
	if id := intent.Metadata["transaction_id"]; id != "" {
		return id, nil
	}
	txn, err := s.transactions.FindByProviderRef(ctx, intent.ID)
	if err != nil {
		return "", fmt.Errorf("resolve provider ref: %w", err)
	}
	if txn == nil {
		return intent.ID, nil
	}
	return txn.TransactionID, nil
}
