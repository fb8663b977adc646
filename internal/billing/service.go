package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
)

type repository interface {
	ListActive(ctx context.Context) ([]models.BillingPlan, error)
}

// Service exposes billing plan reads.
type Service interface {
	ListPlans(ctx context.Context) ([]PlanDTO, error)
}

type service struct {
	repo repository
}

// NewService builds a billing plan service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	return &service{repo: repo}, nil
}

// PlanDTO is the serialized plan view.
type PlanDTO struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	Interval  string           `json:"interval"`
	Status    enums.PlanStatus `json:"status"`
	IsDefault bool             `json:"is_default"`
}

func (s *service) ListPlans(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list billing plans")
	}
	out := make([]PlanDTO, 0, len(plans))
	for _, plan := range plans {
		out = append(out, PlanDTO{
			ID:        plan.ID,
			Name:      plan.Name,
			Amount:    plan.Amount,
			Currency:  plan.Currency,
			Interval:  plan.Interval,
			Status:    plan.Status,
			IsDefault: plan.IsDefault,
		})
	}
	return out, nil
}
