package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/maiyoury/pkasla/internal/catalog"
	"github.com/maiyoury/pkasla/internal/khqr"
	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/pkg/bakong"
	"github.com/maiyoury/pkasla/pkg/config"
	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

const (
	storeLabelMaxLen       = 25
	statusCheckLimit       = 10
	statusCheckWindow      = time.Minute
	statusCheckScopePrefix = "bakong_status:"
)

// CardGateway is the card-network surface the service needs.
type CardGateway interface {
	Configured() bool
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, transactionID, description string) (*stripeapi.PaymentIntent, error)
}

// QRGateway is the instant-payment-network surface the service needs.
type QRGateway interface {
	Ensure() error
	Config() config.BakongConfig
	GenerateDeeplink(ctx context.Context, qr string) (string, error)
	GetTransaction(ctx context.Context, transactionID string) (*bakong.TransactionStatus, error)
}

// Reconciler applies normalized events to the ledger.
type Reconciler interface {
	Apply(ctx context.Context, event settlement.NormalizedEvent) (settlement.Outcome, error)
}

// RateLimiter bounds how often callers may poll the provider per transaction.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// CreatePaymentInput is a purchase intent. Exactly one of PlanID or
// TemplateID is set depending on Purpose; the price is never taken from
// the client.
type CreatePaymentInput struct {
	UserID     uuid.UUID
	Purpose    enums.PaymentPurpose
	PlanID     *uuid.UUID
	TemplateID *uuid.UUID
	Currency   enums.Currency
}

// CardArtifact is the checkout material for a card payment.
type CardArtifact struct {
	TransactionID string `json:"transaction_id"`
	IntentID      string `json:"intent_id"`
	ClientSecret  string `json:"client_secret"`
}

// QRArtifact is the checkout material for an instant-QR payment.
type QRArtifact struct {
	TransactionID string          `json:"transaction_id"`
	QRString      string          `json:"qr_string"`
	Deeplink      string          `json:"deeplink,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      enums.Currency  `json:"currency"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Repo       Repository
	Catalog    *catalog.Service
	Card       CardGateway
	QR         QRGateway
	Reconciler Reconciler
	Limiter    RateLimiter
	Logger     *logger.Logger
}

// Service creates payment sessions and answers status queries.
type Service struct {
	repo       Repository
	catalog    *catalog.Service
	card       CardGateway
	qr         QRGateway
	reconciler Reconciler
	limiter    RateLimiter
	logg       *logger.Logger
}

// NewService builds a payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if params.Card == nil {
		return nil, errors.New("card gateway is required")
	}
	if params.QR == nil {
		return nil, errors.New("qr gateway is required")
	}
	if params.Reconciler == nil {
		return nil, errors.New("reconciler is required")
	}
	return &Service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		card:       params.Card,
		qr:         params.QR,
		reconciler: params.Reconciler,
		limiter:    params.Limiter,
		logg:       params.Logger,
	}, nil
}

// CreateCardPayment opens a card-network payment intent and persists the
// pending transaction. The caller renders the returned client secret.
func (s *Service) CreateCardPayment(ctx context.Context, input CreatePaymentInput) (*CardArtifact, error) {
	if !s.card.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeProviderNotConfigured, "stripe is not configured")
	}
	price, err := s.derivePrice(ctx, input)
	if err != nil {
		return nil, err
	}

	transactionID := newTransactionID()
	if s.logg != nil {
		ctx = s.logg.WithTransactionID(ctx, transactionID)
	}

	amountMinor := price.AmountUSD.Shift(2).IntPart()
	intent, err := s.card.CreatePaymentIntent(ctx, amountMinor, "usd", transactionID, price.Description)
	if err != nil {
		return nil, err
	}

	ref := intent.ID
	description := price.Description
	txn := &models.PaymentTransaction{
		TransactionID: transactionID,
		ProviderRef:   &ref,
		Provider:      enums.PaymentProviderStripe,
		Purpose:       input.Purpose,
		UserID:        input.UserID,
		PlanID:        input.PlanID,
		TemplateID:    input.TemplateID,
		Amount:        price.AmountUSD,
		Currency:      enums.CurrencyUSD,
		Status:        enums.PaymentStatusPending,
		Description:   &description,
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("persist card transaction: %w", err)
	}

	s.auditCreated(ctx, transactionID, enums.PaymentProviderStripe, map[string]string{
		"intent_id": intent.ID,
	})

	return &CardArtifact{
		TransactionID: transactionID,
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// CreateQRPayment generates a KHQR code locally, persists the pending
// transaction with its expiry, and opportunistically fetches a wallet
// deeplink. Deeplink failure never fails the session; the QR string alone
// is a complete payment artifact.
func (s *Service) CreateQRPayment(ctx context.Context, input CreatePaymentInput) (*QRArtifact, error) {
	if err := s.qr.Ensure(); err != nil {
		return nil, err
	}
	price, err := s.derivePrice(ctx, input)
	if err != nil {
		return nil, err
	}

	transactionID := newTransactionID()
	if s.logg != nil {
		ctx = s.logg.WithTransactionID(ctx, transactionID)
	}

	cfg := s.qr.Config()
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyKHR
	}
	amount := price.AmountUSD
	if currency == enums.CurrencyKHR {
		amount = price.AmountUSD.Mul(decimal.NewFromFloat(cfg.KHRPerUSD)).Round(0)
	}

	expiresAt := time.Now().UTC().Add(cfg.QRExpiry)
	// Truncate on a rune boundary; catalog names can carry Khmer script and
	// a byte slice would split a character.
	label := price.Description
	if runes := []rune(label); len(runes) > storeLabelMaxLen {
		label = string(runes[:storeLabelMaxLen])
	}

	qrString, err := khqr.Encode(khqr.MerchantPayload{
		MerchantAccountID: cfg.MerchantAccountID,
		MerchantName:      cfg.MerchantName,
		MerchantCity:      cfg.MerchantCity,
		MerchantCategory:  cfg.MerchantCategory,
		Currency:          currency,
		Amount:            &amount,
		BillNumber:        transactionID,
		StoreLabel:        label,
		ExpiryMillis:      expiresAt.UnixMilli(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode qr payload")
	}

	description := price.Description
	expiry := expiresAt
	txn := &models.PaymentTransaction{
		TransactionID: transactionID,
		Provider:      enums.PaymentProviderBakong,
		Purpose:       input.Purpose,
		UserID:        input.UserID,
		PlanID:        input.PlanID,
		TemplateID:    input.TemplateID,
		Amount:        amount,
		Currency:      currency,
		Status:        enums.PaymentStatusPending,
		Description:   &description,
		ExpiresAt:     &expiry,
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("persist qr transaction: %w", err)
	}

	deeplink := ""
	if link, err := s.qr.GenerateDeeplink(ctx, qrString); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("deeplink generation failed, serving raw qr: %v", err))
		}
	} else {
		deeplink = link
	}

	s.auditCreated(ctx, transactionID, enums.PaymentProviderBakong, map[string]string{
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	return &QRArtifact{
		TransactionID: transactionID,
		QRString:      qrString,
		Deeplink:      deeplink,
		Amount:        amount,
		Currency:      currency,
		ExpiresAt:     expiresAt,
	}, nil
}

// CheckQRStatus polls the provider for one transaction and runs the result
// through the reconciler, so a poll that observes success settles exactly
// like a webhook would. Terminal transactions are answered from the ledger
// without touching the provider.
func (s *Service) CheckQRStatus(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	txn, err := s.ownedTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status.IsTerminal() {
		return txn, nil
	}
	if txn.Provider != enums.PaymentProviderBakong {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status polling applies to qr payments only")
	}

	if s.limiter != nil {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, statusCheckScopePrefix+transactionID, statusCheckLimit, statusCheckWindow)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("status poll limiter unavailable: %v", err))
			}
		} else if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "status polled too frequently")
		}
	}

	remote, err := s.qr.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(remote)
	if _, err := s.reconciler.Apply(ctx, settlement.NormalizedEvent{
		Kind:           settlement.EventStatusChecked,
		TransactionID:  transactionID,
		Provider:       enums.PaymentProviderBakong,
		ObservedStatus: bakong.MapStatus(remote.Status),
		Raw:            raw,
	}); err != nil {
		return nil, err
	}

	return s.ownedTransaction(ctx, userID, transactionID)
}

// GetTransaction returns one of the caller's transactions.
func (s *Service) GetTransaction(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	return s.ownedTransaction(ctx, userID, transactionID)
}

// ListTransactions returns the caller's payment history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentTransaction, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) ownedTransaction(ctx context.Context, userID uuid.UUID, transactionID string) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	// Another user's transaction reads as absent rather than forbidden.
	if txn == nil || txn.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

func (s *Service) derivePrice(ctx context.Context, input CreatePaymentInput) (*catalog.Price, error) {
	switch input.Purpose {
	case enums.PaymentPurposeSubscription:
		if input.PlanID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_id is required for subscription payments")
		}
		return s.catalog.PlanPrice(ctx, *input.PlanID)
	case enums.PaymentPurposeTemplate:
		if input.TemplateID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "template_id is required for template payments")
		}
		return s.catalog.TemplatePrice(ctx, *input.TemplateID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment purpose %q", input.Purpose))
	}
}

func (s *Service) auditCreated(ctx context.Context, transactionID string, provider enums.PaymentProvider, details map[string]string) {
	raw, _ := json.Marshal(details)
	if _, err := s.reconciler.Apply(ctx, settlement.NormalizedEvent{
		Kind:          settlement.EventCreated,
		TransactionID: transactionID,
		Provider:      provider,
		Raw:           raw,
	}); err != nil && s.logg != nil {
		s.logg.Error(ctx, "audit created event", err)
	}
}
