package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// Repository handles billing plan persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new billing plan.
func (r *Repository) Create(ctx context.Context, plan *models.BillingPlan) error {
	if plan == nil {
		return fmt.Errorf("plan is required")
	}
	return r.db.WithContext(ctx).Create(plan).Error
}

// FindByID loads a plan by id. Returns nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// FindDefault loads the active default plan. Returns nil when none is marked.
func (r *Repository) FindDefault(ctx context.Context) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := r.db.WithContext(ctx).
		Where("is_default = ? AND status = ?", true, enums.PlanStatusActive).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// ListActive returns all active plans ordered by amount ascending.
func (r *Repository) ListActive(ctx context.Context) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.PlanStatusActive).
		Order("amount ASC").
		Find(&plans).Error
	return plans, err
}
