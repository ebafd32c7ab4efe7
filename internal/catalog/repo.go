// Package catalog resolves purchasable items. Amounts are always derived
// from these records server side; client-supplied prices are never trusted.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maiyoury/pkasla/pkg/db/models"
)

// Repository handles catalog lookups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	FindTemplate(ctx context.Context, id uuid.UUID) (*models.WeddingTemplate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindTemplate(ctx context.Context, id uuid.UUID) (*models.WeddingTemplate, error) {
	var template models.WeddingTemplate
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&template).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}
