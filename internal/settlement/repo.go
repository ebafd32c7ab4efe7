package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/maiyoury/pkasla/pkg/db"
	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
)

// Repository handles settlement persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	TransitionFromPending(ctx context.Context, transactionID string, to enums.PaymentStatus, settledAt *time.Time) (bool, error)
	CreateSubscription(ctx context.Context, sub *models.UserSubscription) error
	CreateTemplatePurchase(ctx context.Context, purchase *models.TemplatePurchase) error
	FindPlan(ctx context.Context, planID uuid.UUID) (*models.SubscriptionPlan, error)
	AppendEvent(ctx context.Context, event *models.PaymentEvent) error
	ListStalePending(ctx context.Context, provider enums.PaymentProvider, asOf time.Time, limit int) ([]models.PaymentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
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

// TransitionFromPending moves the transaction into a terminal status with a
// single conditional write. Returns false when no row changed, which means
// the transaction either does not exist or already left pending; the caller
// distinguishes the two.
func (r *repository) TransitionFromPending(ctx context.Context, transactionID string, to enums.PaymentStatus, settledAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if settledAt != nil {
		updates["settled_at"] = *settledAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateSubscription inserts the settlement effect. The conflict clause makes
// the insert a no-op if a row for this transaction already exists, so a
// replayed success event cannot abort the surrounding transaction. A unique
// violation surfacing anyway, through a path the clause does not cover, is
// swallowed for the same reason.
func (r *repository) CreateSubscription(ctx context.Context, sub *models.UserSubscription) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(sub).Error
	if dbpkg.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}

func (r *repository) CreateTemplatePurchase(ctx context.Context, purchase *models.TemplatePurchase) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(purchase).Error
	if dbpkg.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}

func (r *repository) FindPlan(ctx context.Context, planID uuid.UUID) (*models.SubscriptionPlan, error) {
	if planID == uuid.Nil {
		return nil, nil
	}
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("id = ?", planID).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) AppendEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListStalePending(ctx context.Context, provider enums.PaymentProvider, asOf time.Time, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 250
	}
	var txns []models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			provider, enums.PaymentStatusPending, asOf).
		Order("expires_at ASC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
