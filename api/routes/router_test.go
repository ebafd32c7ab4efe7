package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentsvc "github.com/maiyoury/pkasla/internal/payments"
	"github.com/maiyoury/pkasla/internal/settlement"
	pkgauth "github.com/maiyoury/pkasla/pkg/auth"
	"github.com/maiyoury/pkasla/pkg/bakong"
	"github.com/maiyoury/pkasla/pkg/config"
	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	"github.com/maiyoury/pkasla/pkg/stripe"
)

type stubPayments struct {
	listCalls int
}

func (s *stubPayments) CreateCardPayment(ctx context.Context, input paymentsvc.CreatePaymentInput) (*paymentsvc.CardArtifact, error) {
	return &paymentsvc.CardArtifact{TransactionID: "TXN-1"}, nil
}

func (s *stubPayments) CreateQRPayment(ctx context.Context, input paymentsvc.CreatePaymentInput) (*paymentsvc.QRArtifact, error) {
	return &paymentsvc.QRArtifact{TransactionID: "TXN-1"}, nil
}

func (s *stubPayments) CheckQRStatus(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	return &models.PaymentTransaction{TransactionID: transactionID, Status: enums.PaymentStatusPending}, nil
}

func (s *stubPayments) GetTransaction(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	return &models.PaymentTransaction{TransactionID: transactionID, Status: enums.PaymentStatusPending}, nil
}

func (s *stubPayments) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentTransaction, error) {
	s.listCalls++
	return nil, nil
}

type stubStripeWebhook struct{}

func (s *stubStripeWebhook) HandleEvent(ctx context.Context, event *stripeapi.Event) (settlement.Outcome, error) {
	return settlement.OutcomeApplied, nil
}

type stubBakongWebhook struct {
	calls int
}

func (s *stubBakongWebhook) HandleEvent(ctx context.Context, body []byte) (settlement.Outcome, error) {
	s.calls++
	return settlement.OutcomeApplied, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "pkasla-test", ExpirationMinutes: 15},
		Bakong: config.BakongConfig{
			WebhookSecret: "bakong-secret",
		},
	}
}

func testRouter(cfg *config.Config, payments *stubPayments, bakongSvc *stubBakongWebhook) http.Handler {
	return NewRouter(RouterParams{
		Config:        cfg,
		Payments:      payments,
		StripeClient:  &stripe.Client{},
		StripeWebhook: &stubStripeWebhook{},
		BakongWebhook: bakongSvc,
	})
}

func TestHealthLive(t *testing.T) {
	handler := testRouter(testConfig(), &stubPayments{}, &stubBakongWebhook{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Pkasla-Env"))
}

func TestPaymentRoutesRequireAuth(t *testing.T) {
	handler := testRouter(testConfig(), &stubPayments{}, &stubBakongWebhook{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentRoutesAcceptBearerToken(t *testing.T) {
	cfg := testConfig()
	payments := &stubPayments{}
	handler := testRouter(cfg, payments, &stubBakongWebhook{})

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), uuid.New(), "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, payments.listCalls)
}

func TestBakongWebhookRouteVerifiesSignature(t *testing.T) {
	cfg := testConfig()
	bakongSvc := &stubBakongWebhook{}
	handler := testRouter(cfg, &stubPayments{}, bakongSvc)

	body, _ := json.Marshal(map[string]any{
		"type": "payment.completed",
		"data": map[string]string{"transactionId": "TXN-1700000000000-rtr0001"},
	})

	signed := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bakong", bytes.NewReader(body))
	signed.Header.Set("X-Bakong-Signature", bakong.Sign(cfg.Bakong.WebhookSecret, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, bakongSvc.calls)

	unsigned := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bakong", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, unsigned)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, bakongSvc.calls)
}
