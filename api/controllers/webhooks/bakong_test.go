package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/pkg/bakong"
	"github.com/maiyoury/pkasla/pkg/enums"
)

type fakeBakongService struct {
	bodies  [][]byte
	outcome settlement.Outcome
}

func (f *fakeBakongService) HandleEvent(ctx context.Context, body []byte) (settlement.Outcome, error) {
	f.bodies = append(f.bodies, body)
	if f.outcome == "" {
		return settlement.OutcomeApplied, nil
	}
	return f.outcome, nil
}

func TestBakongWebhookAppliesVerifiedEvent(t *testing.T) {
	secret := "bakong-webhook-secret"
	body := []byte(`{"type":"payment.completed","data":{"transactionId":"TXN-1700000000000-whk0002"}}`)
	service := &fakeBakongService{}
	recorder := &fakeRecorder{}
	handler := BakongWebhook(service, secret, recorder, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bakong", bytes.NewReader(body))
	req.Header.Set("X-Bakong-Signature", bakong.Sign(secret, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, service.bodies, 1)
	assert.Equal(t, body, service.bodies[0])
	assert.Empty(t, recorder.failures)
}

func TestBakongWebhookRejectsBadSignature(t *testing.T) {
	body := []byte(`{"type":"payment.completed","data":{"transactionId":"TXN-x"}}`)
	service := &fakeBakongService{}
	recorder := &fakeRecorder{}
	handler := BakongWebhook(service, "bakong-webhook-secret", recorder, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bakong", bytes.NewReader(body))
	req.Header.Set("X-Bakong-Signature", bakong.Sign("wrong-secret", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, service.bodies)
	require.Len(t, recorder.failures, 1)
	assert.Equal(t, enums.PaymentProviderBakong, recorder.failures[0])
}

func TestBakongWebhookRejectsWhenSecretUnset(t *testing.T) {
	body := []byte(`{"type":"payment.completed"}`)
	service := &fakeBakongService{}
	handler := BakongWebhook(service, "", &fakeRecorder{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bakong", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, service.bodies)
}
