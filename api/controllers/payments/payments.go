// Package payments exposes the payment session and status endpoints.
package payments

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maiyoury/pkasla/api/middleware"
	"github.com/maiyoury/pkasla/api/responses"
	"github.com/maiyoury/pkasla/api/validators"
	paymentsvc "github.com/maiyoury/pkasla/internal/payments"
	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

// Service is the payment surface handlers call into.
type Service interface {
	CreateCardPayment(ctx context.Context, input paymentsvc.CreatePaymentInput) (*paymentsvc.CardArtifact, error)
	CreateQRPayment(ctx context.Context, input paymentsvc.CreatePaymentInput) (*paymentsvc.QRArtifact, error)
	CheckQRStatus(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error)
	GetTransaction(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentTransaction, error)
}

type createPaymentRequest struct {
	Purpose    string  `json:"purpose" validate:"required"`
	PlanID     *string `json:"plan_id,omitempty" validate:"omitempty,uuid"`
	TemplateID *string `json:"template_id,omitempty" validate:"omitempty,uuid"`
	Currency   string  `json:"currency,omitempty" validate:"omitempty,oneof=USD KHR"`
}

type transactionView struct {
	TransactionID string     `json:"transaction_id"`
	Provider      string     `json:"provider"`
	Purpose       string     `json:"purpose"`
	Status        string     `json:"status"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Description   *string    `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func viewOf(txn *models.PaymentTransaction) transactionView {
	return transactionView{
		TransactionID: txn.TransactionID,
		Provider:      txn.Provider.String(),
		Purpose:       txn.Purpose.String(),
		Status:        txn.Status.String(),
		Amount:        txn.Amount.StringFixed(txn.Currency.Decimals()),
		Currency:      txn.Currency.String(),
		Description:   txn.Description,
		ExpiresAt:     txn.ExpiresAt,
		SettledAt:     txn.SettledAt,
		CreatedAt:     txn.CreatedAt,
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func decodeCreateInput(r *http.Request, userID uuid.UUID) (paymentsvc.CreatePaymentInput, error) {
	var body createPaymentRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return paymentsvc.CreatePaymentInput{}, err
	}

	purpose, err := enums.ParsePaymentPurpose(body.Purpose)
	if err != nil {
		return paymentsvc.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purpose")
	}

	input := paymentsvc.CreatePaymentInput{
		UserID:  userID,
		Purpose: purpose,
	}
	if body.PlanID != nil {
		id, err := uuid.Parse(*body.PlanID)
		if err != nil {
			return paymentsvc.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_id")
		}
		input.PlanID = &id
	}
	if body.TemplateID != nil {
		id, err := uuid.Parse(*body.TemplateID)
		if err != nil {
			return paymentsvc.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid template_id")
		}
		input.TemplateID = &id
	}
	if body.Currency != "" {
		currency, err := enums.ParseCurrency(body.Currency)
		if err != nil {
			return paymentsvc.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		input.Currency = currency
	}
	return input, nil
}

// CreateCardPayment opens a card checkout session.
func CreateCardPayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := decodeCreateInput(r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		artifact, err := svc.CreateCardPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, artifact)
	}
}

// CreateQRPayment opens a KHQR checkout session.
func CreateQRPayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := decodeCreateInput(r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		artifact, err := svc.CreateQRPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, artifact)
	}
}

// CheckQRStatus polls the provider and returns the possibly-settled
// transaction.
func CheckQRStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.CheckQRStatus(r.Context(), userID, chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(txn))
	}
}

// Detail returns one of the caller's transactions.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.GetTransaction(r.Context(), userID, chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(txn))
	}
}

// List returns the caller's payment history.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer"))
				return
			}
			limit = parsed
		}

		txns, err := svc.ListTransactions(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]transactionView, 0, len(txns))
		for i := range txns {
			views = append(views, viewOf(&txns[i]))
		}
		responses.WriteSuccess(w, views)
	}
}
