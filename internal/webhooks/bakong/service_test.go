package bakongwebhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/pkg/enums"
)

type stubReconciler struct {
	events []settlement.NormalizedEvent
}

func (s *stubReconciler) Apply(ctx context.Context, event settlement.NormalizedEvent) (settlement.Outcome, error) {
	s.events = append(s.events, event)
	return settlement.OutcomeApplied, nil
}

func newService(t *testing.T, rec *stubReconciler) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{Reconciler: rec})
	require.NoError(t, err)
	return service
}

func TestHandleEventCompleted(t *testing.T) {
	rec := &stubReconciler{}
	service := newService(t, rec)

	body := []byte(`{"type":"payment.completed","data":{"transactionId":"TXN-1700000000000-bkg0001","status":"SUCCESS"}}`)
	outcome, err := service.HandleEvent(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, settlement.OutcomeApplied, outcome)

	require.Len(t, rec.events, 1)
	assert.Equal(t, settlement.EventSucceeded, rec.events[0].Kind)
	assert.Equal(t, "TXN-1700000000000-bkg0001", rec.events[0].TransactionID)
	assert.Equal(t, enums.PaymentProviderBakong, rec.events[0].Provider)
}

func TestHandleEventFlatEnvelope(t *testing.T) {
	rec := &stubReconciler{}
	service := newService(t, rec)

	body := []byte(`{"eventType":"transaction.failed","transactionId":"TXN-1700000000000-bkg0002"}`)
	outcome, err := service.HandleEvent(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, settlement.OutcomeApplied, outcome)

	require.Len(t, rec.events, 1)
	assert.Equal(t, settlement.EventFailed, rec.events[0].Kind)
	assert.Equal(t, "TXN-1700000000000-bkg0002", rec.events[0].TransactionID)
}

func TestHandleEventExpired(t *testing.T) {
	rec := &stubReconciler{}
	service := newService(t, rec)

	body := []byte(`{"type":"payment.expired","data":{"id":"TXN-1700000000000-bkg0003"}}`)
	outcome, err := service.HandleEvent(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, settlement.OutcomeApplied, outcome)
	require.Len(t, rec.events, 1)
	assert.Equal(t, settlement.EventExpired, rec.events[0].Kind)
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	rec := &stubReconciler{}
	service := newService(t, rec)

	outcome, err := service.HandleEvent(context.Background(), []byte(`{"type":"payment.hold","data":{"transactionId":"TXN-x"}}`))
	require.NoError(t, err)
	assert.Equal(t, settlement.OutcomeIgnored, outcome)
	assert.Empty(t, rec.events)
}

func TestHandleEventMissingTransactionID(t *testing.T) {
	service := newService(t, &stubReconciler{})

	_, err := service.HandleEvent(context.Background(), []byte(`{"type":"payment.completed","data":{}}`))
	require.Error(t, err)
}

func TestHandleEventMalformedBody(t *testing.T) {
	service := newService(t, &stubReconciler{})

	_, err := service.HandleEvent(context.Background(), []byte(`{not json`))
	require.Error(t, err)
}
