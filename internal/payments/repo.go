// Package payments orchestrates payment session creation: pick a provider,
// derive the price server side, produce checkout material, and persist the
// pending transaction that the settlement reconciler later resolves.
package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maiyoury/pkasla/pkg/db/models"
)

// Repository handles payment transaction persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	FindByProviderRef(ctx context.Context, providerRef string) (*models.PaymentTransaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	if transactionID == "" {
		return nil, nil
	}
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByProviderRef(ctx context.Context, providerRef string) (*models.PaymentTransaction, error) {
	if providerRef == "" {
		return nil, nil
	}
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("provider_ref = ?", providerRef).
		First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
