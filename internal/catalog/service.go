package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
)

// Price is the server-derived cost of a purchasable item.
type Price struct {
	AmountUSD   decimal.Decimal
	Description string
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo Repository
}

// Service answers price questions for plans and templates.
type Service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// PlanPrice resolves the cost of a subscription plan.
func (s *Service) PlanPrice(ctx context.Context, planID uuid.UUID) (*Price, error) {
	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription plan not found")
	}
	if !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription plan is not purchasable")
	}
	return &Price{
		AmountUSD:   plan.PriceUSD,
		Description: fmt.Sprintf("Subscription: %s", plan.Name),
	}, nil
}

// TemplatePrice resolves the cost of a wedding template. Free templates are
// not purchasable; charging zero would mint a settlement for nothing.
func (s *Service) TemplatePrice(ctx context.Context, templateID uuid.UUID) (*Price, error) {
	template, err := s.repo.FindTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wedding template not found")
	}
	if !template.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wedding template is not purchasable")
	}
	if template.PriceUSD.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wedding template is free")
	}
	return &Price{
		AmountUSD:   template.PriceUSD,
		Description: fmt.Sprintf("Template Purchase: %s", template.Name),
	}, nil
}
