package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/maiyoury/pkasla/api/responses"
	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/pkg/bakong"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

const bakongSignatureHeader = "X-Bakong-Signature"

// BakongWebhookService normalizes verified instant-payment events.
type BakongWebhookService interface {
	HandleEvent(ctx context.Context, body []byte) (settlement.Outcome, error)
}

// BakongWebhook authenticates the HMAC delivery signature and hands the raw
// body to the settlement pipeline. A missing secret rejects everything; an
// open webhook endpoint would let anyone settle transactions.
func BakongWebhook(svc BakongWebhookService, webhookSecret string, recorder AuthFailureRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(bakongSignatureHeader)
		if webhookSecret == "" || !bakong.VerifySignature(webhookSecret, body, signature) {
			recordAuthFailure(ctx, recorder, enums.PaymentProviderBakong, body, logg)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		outcome, err := svc.HandleEvent(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
