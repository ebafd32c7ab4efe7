package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/maiyoury/pkasla/pkg/db/models"
	"github.com/maiyoury/pkasla/pkg/enums"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
)

type stubCatalogRepo struct {
	plan     *models.SubscriptionPlan
	template *models.WeddingTemplate
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) FindPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	return s.plan, nil
}

func (s *stubCatalogRepo) FindTemplate(ctx context.Context, id uuid.UUID) (*models.WeddingTemplate, error) {
	return s.template, nil
}

func TestPlanPrice(t *testing.T) {
	service, err := NewService(ServiceParams{Repo: &stubCatalogRepo{
		plan: &models.SubscriptionPlan{
			ID:           uuid.New(),
			Name:         "Premium",
			PriceUSD:     decimal.RequireFromString("9.99"),
			BillingCycle: enums.BillingCycleMonthly,
			Active:       true,
		},
	}})
	require.NoError(t, err)

	price, err := service.PlanPrice(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, price.AmountUSD.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, "Subscription: Premium", price.Description)
}

func TestPlanPriceNotFound(t *testing.T) {
	service, err := NewService(ServiceParams{Repo: &stubCatalogRepo{}})
	require.NoError(t, err)

	_, err = service.PlanPrice(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestTemplatePriceRejectsFreeTemplate(t *testing.T) {
	service, err := NewService(ServiceParams{Repo: &stubCatalogRepo{
		template: &models.WeddingTemplate{
			ID:       uuid.New(),
			Name:     "Classic",
			PriceUSD: decimal.Zero,
			Active:   true,
		},
	}})
	require.NoError(t, err)

	_, err = service.TemplatePrice(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestTemplatePriceInactive(t *testing.T) {
	service, err := NewService(ServiceParams{Repo: &stubCatalogRepo{
		template: &models.WeddingTemplate{
			ID:       uuid.New(),
			Name:     "Retired",
			PriceUSD: decimal.RequireFromString("19.99"),
			Active:   false,
		},
	}})
	require.NoError(t, err)

	_, err = service.TemplatePrice(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
