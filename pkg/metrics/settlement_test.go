package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSettlementMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSettlementMetrics(reg)

	metrics.IncEvent("bakong", "succeeded")
	metrics.IncEvent("bakong", "succeeded")
	metrics.IncTransition("completed", "applied")
	metrics.IncTransition("completed", "duplicate")
	metrics.IncAuthFailure("stripe")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "settlement_events_total", "provider", "bakong"); err != nil {
		t.Fatalf("fetch events: %v", err)
	} else if got != 2 {
		t.Fatalf("expected events=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "settlement_transitions_total", "outcome", "applied"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected applied=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_auth_failures_total", "provider", "stripe"); err != nil {
		t.Fatalf("fetch auth failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected auth failures=1, got %f", got)
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var metrics *SettlementMetrics
	metrics.IncEvent("bakong", "succeeded")
	metrics.IncTransition("completed", "applied")
	metrics.IncAuthFailure("stripe")
}
