package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiyoury/pkasla/api/middleware"
	paymentsvc "github.com/maiyoury/pkasla/internal/payments"
	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
)

type stubService struct {
	cardInput paymentsvc.CreatePaymentInput
	card      *paymentsvc.CardArtifact
	cardErr   error

	qrInput paymentsvc.CreatePaymentInput
	qr      *paymentsvc.QRArtifact

	checked string
	txn     *models.PaymentTransaction
	txnErr  error

	listLimit int
	history   []models.PaymentTransaction
}

func (s *stubService) CreateCardPayment(ctx context.Context, input paymentsvc.CreatePaymentInput) (*paymentsvc.CardArtifact, error) {
	s.cardInput = input
	return s.card, s.cardErr
}

func (s *stubService) CreateQRPayment(ctx context.Context, input paymentsvc.CreatePaymentInput) (*paymentsvc.QRArtifact, error) {
	s.qrInput = input
	return s.qr, nil
}

func (s *stubService) CheckQRStatus(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	s.checked = transactionID
	return s.txn, s.txnErr
}

func (s *stubService) GetTransaction(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	return s.txn, s.txnErr
}

func (s *stubService) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentTransaction, error) {
	s.listLimit = limit
	return s.history, nil
}

func testRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/card", CreateCardPayment(svc, nil))
	r.Post("/payments/khqr", CreateQRPayment(svc, nil))
	r.Get("/payments", List(svc, nil))
	r.Get("/payments/{transactionId}", Detail(svc, nil))
	r.Get("/payments/khqr/{transactionId}/status", CheckQRStatus(svc, nil))
	return r
}

func authedRequest(method, target string, body []byte, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCreateCardPayment(t *testing.T) {
	planID := uuid.New()
	userID := uuid.New()
	svc := &stubService{card: &paymentsvc.CardArtifact{
		TransactionID: "TXN-1700000000000-card001",
		IntentID:      "pi_test_1",
		ClientSecret:  "pi_test_1_secret",
	}}

	body, _ := json.Marshal(map[string]any{"purpose": "subscription", "plan_id": planID.String()})
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/payments/card", body, userID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, userID, svc.cardInput.UserID)
	assert.Equal(t, enums.PaymentPurposeSubscription, svc.cardInput.Purpose)
	require.NotNil(t, svc.cardInput.PlanID)
	assert.Equal(t, planID, *svc.cardInput.PlanID)

	var envelope struct {
		Data paymentsvc.CardArtifact `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "pi_test_1_secret", envelope.Data.ClientSecret)
}

func TestCreateCardPaymentRejectsUnknownPurpose(t *testing.T) {
	svc := &stubService{}
	body, _ := json.Marshal(map[string]any{"purpose": "donation"})
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/payments/card", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCardPaymentRequiresIdentity(t *testing.T) {
	svc := &stubService{}
	body, _ := json.Marshal(map[string]any{"purpose": "subscription"})
	req := httptest.NewRequest(http.MethodPost, "/payments/card", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateQRPaymentParsesCurrency(t *testing.T) {
	templateID := uuid.New()
	svc := &stubService{qr: &paymentsvc.QRArtifact{
		TransactionID: "TXN-1700000000000-qr00001",
		QRString:      "000201",
		Amount:        decimal.NewFromInt(81959),
		Currency:      enums.CurrencyKHR,
		ExpiresAt:     time.Now().Add(15 * time.Minute),
	}}

	body, _ := json.Marshal(map[string]any{
		"purpose":     "template",
		"template_id": templateID.String(),
		"currency":    "KHR",
	})
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/payments/khqr", body, uuid.New()))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, enums.CurrencyKHR, svc.qrInput.Currency)
	require.NotNil(t, svc.qrInput.TemplateID)
	assert.Equal(t, templateID, *svc.qrInput.TemplateID)
}

func TestCheckQRStatus(t *testing.T) {
	settled := time.Now().UTC()
	svc := &stubService{txn: &models.PaymentTransaction{
		TransactionID: "TXN-1700000000000-qr00002",
		Provider:      enums.PaymentProviderBakong,
		Purpose:       enums.PaymentPurposeTemplate,
		Status:        enums.PaymentStatusCompleted,
		Amount:        decimal.NewFromInt(40000),
		Currency:      enums.CurrencyKHR,
		SettledAt:     &settled,
	}}

	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/payments/khqr/TXN-1700000000000-qr00002/status", nil, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "TXN-1700000000000-qr00002", svc.checked)

	var envelope struct {
		Data transactionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "completed", envelope.Data.Status)
	assert.Equal(t, "40000", envelope.Data.Amount)
}

func TestDetailNotFound(t *testing.T) {
	svc := &stubService{txnErr: pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")}
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/payments/TXN-missing", nil, uuid.New()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListParsesLimit(t *testing.T) {
	svc := &stubService{history: []models.PaymentTransaction{
		{
			TransactionID: "TXN-1700000000000-a000001",
			Provider:      enums.PaymentProviderStripe,
			Purpose:       enums.PaymentPurposeSubscription,
			Status:        enums.PaymentStatusPending,
			Amount:        decimal.RequireFromString("9.99"),
			Currency:      enums.CurrencyUSD,
		},
	}}

	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/payments?limit=5", nil, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, svc.listLimit)

	var envelope struct {
		Data []transactionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "9.99", envelope.Data[0].Amount)
}

func TestListRejectsBadLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(&stubService{}).ServeHTTP(rec, authedRequest(http.MethodGet, "/payments?limit=nope", nil, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
