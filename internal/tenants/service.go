package tenants

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
)

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (*models.Employee, error)
}

// Service exposes tenant directory reads.
type Service interface {
	GetProfile(ctx context.Context, tenantID uuid.UUID) (*ProfileDTO, error)
}

type service struct {
	repo repository
}

// NewService builds a tenant service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	return &service{repo: repo}, nil
}

// ProfileDTO is the tenant view returned to its own dashboard.
type ProfileDTO struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Status             enums.TenantStatus `json:"status"`
	StripeAccountID    *string            `json:"stripe_account_id,omitempty"`
	ChargesEnabled     bool               `json:"charges_enabled"`
	PayoutsEnabled     bool               `json:"payouts_enabled"`
	DetailsSubmitted   bool               `json:"details_submitted"`
	FeePercent         int                `json:"fee_percent"`
	FeeFixed           int64              `json:"fee_fixed"`
	NotificationEmails []string           `json:"notification_emails"`
}

func (s *service) GetProfile(ctx context.Context, tenantID uuid.UUID) (*ProfileDTO, error) {
	tenant, err := s.repo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return &ProfileDTO{
		ID:                 tenant.ID,
		Name:               tenant.Name,
		Status:             tenant.Status,
		StripeAccountID:    tenant.StripeAccountID,
		ChargesEnabled:     tenant.ChargesEnabled,
		PayoutsEnabled:     tenant.PayoutsEnabled,
		DetailsSubmitted:   tenant.DetailsSubmitted,
		FeePercent:         tenant.FeePercent,
		FeeFixed:           tenant.FeeFixed,
		NotificationEmails: tenant.NotificationEmails,
	}, nil
}
