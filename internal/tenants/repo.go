package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
)

// Repository handles tenant and employee persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to tenant operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a tenant by its UUID. Returns nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// FindByStripeAccountID loads the tenant owning the given connected account.
// Returns nil when no tenant has claimed the account.
func (r *Repository) FindByStripeAccountID(ctx context.Context, accountID string) (*models.Tenant, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	var tenant models.Tenant
	err := r.db.WithContext(ctx).Where("stripe_account_id = ?", accountID).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// UpdateConnectFlags overwrites the connected-account capability flags.
func (r *Repository) UpdateConnectFlags(ctx context.Context, id uuid.UUID, charges, payouts, details bool) error {
	return r.db.WithContext(ctx).Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"connect_charges_enabled":   charges,
			"connect_payouts_enabled":   payouts,
			"connect_details_submitted": details,
		}).Error
}

// Update saves the provided tenant.
func (r *Repository) Update(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	return r.db.WithContext(ctx).Save(tenant).Error
}

// FindEmployee loads an employee scoped to its tenant. Returns nil when absent
// or owned by a different tenant.
func (r *Repository) FindEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", employeeID, tenantID).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}
