package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics counts the reconciliation traffic: events received per
// provider, transitions applied or discarded, and rejected webhook calls.
type SettlementMetrics struct {
	events       *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_events_total",
		Help: "Provider events received, after signature verification.",
	}, []string{"provider", "event_type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transitions_total",
		Help: "Transaction state transition attempts by outcome.",
	}, []string{"to_status", "outcome"})
	authFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_auth_failures_total",
		Help: "Inbound webhook calls that failed signature verification.",
	}, []string{"provider"})
	reg.MustRegister(events, transitions, authFailures)
	return &SettlementMetrics{
		events:       events,
		transitions:  transitions,
		authFailures: authFailures,
	}
}

// IncEvent counts one verified provider event.
func (s *SettlementMetrics) IncEvent(provider, eventType string) {
	if s == nil || s.events == nil {
		return
	}
	s.events.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType)).Inc()
}

// IncTransition counts one transition attempt. Outcome is one of
// applied, duplicate, or not_found.
func (s *SettlementMetrics) IncTransition(toStatus, outcome string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(toStatus), normalizeLabel(outcome)).Inc()
}

// IncAuthFailure counts one rejected webhook call.
func (s *SettlementMetrics) IncAuthFailure(provider string) {
	if s == nil || s.authFailures == nil {
		return
	}
	s.authFailures.WithLabelValues(normalizeLabel(provider)).Inc()
}
