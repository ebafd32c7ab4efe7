package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/maiyoury/pkasla/api/responses"
	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

// Provider payloads are small; anything past this is not a webhook.
const maxWebhookBody = 1 << 20

// StripeWebhookService normalizes verified card-network events.
type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (settlement.Outcome, error)
}

type stripeSigningClient interface {
	SigningSecret() string
}

// AuthFailureRecorder keeps an audit trail of rejected webhook deliveries.
type AuthFailureRecorder interface {
	RecordAuthFailure(ctx context.Context, provider enums.PaymentProvider, raw []byte) error
}

// StripeWebhook verifies the delivery signature before handing the event to
// the settlement pipeline. Unverified bodies never reach the ledger; they
// are recorded and rejected.
func StripeWebhook(svc StripeWebhookService, client stripeSigningClient, recorder AuthFailureRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), client.SigningSecret())
		if err != nil {
			recordAuthFailure(ctx, recorder, enums.PaymentProviderStripe, payload, logg)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}

func recordAuthFailure(ctx context.Context, recorder AuthFailureRecorder, provider enums.PaymentProvider, raw []byte, logg *logger.Logger) {
	if recorder == nil {
		return
	}
	if err := recorder.RecordAuthFailure(ctx, provider, raw); err != nil && logg != nil {
		logg.Error(ctx, "record webhook auth failure", err)
	}
}
