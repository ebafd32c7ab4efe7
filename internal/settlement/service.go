package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	"github.com/maiyoury/pkasla/pkg/logger"
	"github.com/maiyoury/pkasla/pkg/metrics"
)

// Outcome describes what applying an event did to the ledger.
type Outcome string

const (
	// OutcomeApplied means the transaction moved into a terminal state.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the transaction already left pending; the event
	// was audited and discarded. Not an error.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNotFound means no transaction matches the event. Logged for
	// investigation, no side effect.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeRecorded means the event carried no transition and was only
	// written to the audit log.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeIgnored is used by the webhook layer for event types the
	// system deliberately does not handle. Acknowledged, never applied.
	OutcomeIgnored Outcome = "ignored"
)

// ServiceParams groups dependencies for the settlement service.
type ServiceParams struct {
	DB      *gorm.DB
	Repo    Repository
	Logger  *logger.Logger
	Metrics *metrics.SettlementMetrics
}

// Service applies normalized provider events to the transaction ledger.
type Service struct {
	db      *gorm.DB
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.SettlementMetrics
}

// NewService builds a settlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{
		db:      params.DB,
		repo:    params.Repo,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Apply reconciles one verified event. Every event is appended to the audit
// log first; the state transition itself is a single conditional write inside
// a database transaction, so concurrent duplicate deliveries race safely and
// exactly one of them settles.
func (s *Service) Apply(ctx context.Context, event NormalizedEvent) (Outcome, error) {
	if s.logg != nil {
		ctx = s.logg.WithTransactionID(ctx, event.TransactionID)
		ctx = s.logg.WithProvider(ctx, string(event.Provider))
	}
	s.metrics.IncEvent(string(event.Provider), event.Kind.String())

	if err := s.audit(ctx, event); err != nil {
		return "", fmt.Errorf("append payment event: %w", err)
	}

	target, ok := event.targetStatus()
	if !ok {
		return OutcomeRecorded, nil
	}

	outcome := OutcomeRecorded
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindTransaction(ctx, event.TransactionID)
		if err != nil {
			return err
		}
		if txn == nil {
			outcome = OutcomeNotFound
			return nil
		}

		var settledAt *time.Time
		if target == enums.PaymentStatusCompleted {
			now := time.Now().UTC()
			settledAt = &now
		}

		applied, err := repo.TransitionFromPending(ctx, event.TransactionID, target, settledAt)
		if err != nil {
			return err
		}
		if !applied {
			outcome = OutcomeDuplicate
			return nil
		}

		if target == enums.PaymentStatusCompleted {
			if err := s.settle(ctx, repo, txn); err != nil {
				return err
			}
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return "", err
	}

	s.metrics.IncTransition(string(target), string(outcome))
	switch outcome {
	case OutcomeApplied:
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("transaction settled as %s", target))
		}
	case OutcomeDuplicate:
		if s.logg != nil {
			s.logg.Info(ctx, "duplicate event discarded")
		}
	case OutcomeNotFound:
		if s.logg != nil {
			s.logg.Warn(ctx, "event references unknown transaction")
		}
	}
	return outcome, nil
}

// settle writes the durable business effect of a completed payment. The
// effect tables carry a unique transaction_id index with an ignore-conflict
// insert, a second line of defense behind the conditional transition.
func (s *Service) settle(ctx context.Context, repo Repository, txn *models.PaymentTransaction) error {
	now := time.Now().UTC()

	switch txn.Purpose {
	case enums.PaymentPurposeSubscription:
		if txn.PlanID == nil {
			return fmt.Errorf("completed subscription payment %s has no plan", txn.TransactionID)
		}
		endsAt := now.AddDate(0, 1, 0)
		plan, err := repo.FindPlan(ctx, *txn.PlanID)
		if err != nil {
			return err
		}
		if plan != nil && plan.BillingCycle == enums.BillingCycleYearly {
			endsAt = now.AddDate(1, 0, 0)
		}
		return repo.CreateSubscription(ctx, &models.UserSubscription{
			UserID:        txn.UserID,
			PlanID:        *txn.PlanID,
			TransactionID: txn.TransactionID,
			Status:        enums.SubscriptionStatusActive,
			StartsAt:      now,
			EndsAt:        endsAt,
		})
	case enums.PaymentPurposeTemplate:
		if txn.TemplateID == nil {
			return fmt.Errorf("completed template payment %s has no template", txn.TransactionID)
		}
		return repo.CreateTemplatePurchase(ctx, &models.TemplatePurchase{
			UserID:        txn.UserID,
			TemplateID:    *txn.TemplateID,
			TransactionID: txn.TransactionID,
		})
	default:
		return fmt.Errorf("unknown payment purpose %q", txn.Purpose)
	}
}

func (s *Service) audit(ctx context.Context, event NormalizedEvent) error {
	row := &models.PaymentEvent{
		Provider:   event.Provider,
		EventType:  event.eventType(),
		RawPayload: event.Raw,
	}
	if event.TransactionID != "" {
		id := event.TransactionID
		row.TransactionID = &id
	}
	return s.repo.AppendEvent(ctx, row)
}

// RecordAuthFailure audits a webhook call that failed signature verification.
// The raw payload is kept for forensics; nothing else happens.
func (s *Service) RecordAuthFailure(ctx context.Context, provider enums.PaymentProvider, raw []byte) error {
	s.metrics.IncAuthFailure(string(provider))
	if s.logg != nil {
		ctx = s.logg.WithProvider(ctx, string(provider))
		s.logg.Warn(ctx, "webhook signature verification failed")
	}
	return s.repo.AppendEvent(ctx, &models.PaymentEvent{
		Provider:   provider,
		EventType:  enums.PaymentEventAuthFailed,
		RawPayload: raw,
	})
}

// ExpireStale sweeps pending QR transactions whose expiry passed and drives
// each through the normal expired transition. Per-transaction failures are
// collected so one bad row does not stall the sweep.
func (s *Service) ExpireStale(ctx context.Context, asOf time.Time, limit int) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, enums.PaymentProviderBakong, asOf, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale pending transactions: %w", err)
	}

	raw, _ := json.Marshal(map[string]string{"reason": "expiry_sweep"})
	expired := 0
	var errs error
	for _, txn := range stale {
		outcome, err := s.Apply(ctx, NormalizedEvent{
			Kind:          EventExpired,
			TransactionID: txn.TransactionID,
			Provider:      txn.Provider,
			Raw:           raw,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", txn.TransactionID, err))
			continue
		}
		if outcome == OutcomeApplied {
			expired++
		}
	}
	return expired, errs
}
