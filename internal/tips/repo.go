package tips

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/pagination"
)

// Repository handles tip persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to tip operations.
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

// Create persists a new tip row.
func (r *Repository) Create(ctx context.Context, tip *models.Tip) error {
	if tip == nil {
		return fmt.Errorf("tip is required")
	}
	return r.db.WithContext(ctx).Create(tip).Error
}

// FindByID loads a tip by its provider-derived id. Returns nil when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Tip, error) {
	if id == "" {
		return nil, fmt.Errorf("tip id is required")
	}
	var tip models.Tip
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tip, nil
}

// Upsert merges the provided tip into any existing row with the same id.
// CreatedAt on an existing row always wins; repeated execution with the same
// input converges to the same final state.
func (r *Repository) Upsert(ctx context.Context, tip *models.Tip) (*models.Tip, error) {
	if tip == nil {
		return nil, fmt.Errorf("tip is required")
	}
	existing, err := r.FindByID(ctx, tip.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := r.db.WithContext(ctx).Create(tip).Error; err != nil {
			return nil, err
		}
		return tip, nil
	}

	existing.TenantID = tip.TenantID
	existing.Amount = tip.Amount
	existing.Currency = tip.Currency
	existing.Status = tip.Status
	existing.RecipientType = tip.RecipientType
	existing.RecipientName = tip.RecipientName
	if tip.SessionID != nil {
		existing.SessionID = tip.SessionID
	}
	if tip.EmployeeID != nil {
		existing.EmployeeID = tip.EmployeeID
	}
	if tip.StripePaymentIntentID != nil {
		existing.StripePaymentIntentID = tip.StripePaymentIntentID
	}
	if tip.Memo != nil {
		existing.Memo = tip.Memo
	}
	if tip.FeeApplied > 0 {
		existing.FeeApplied = tip.FeeApplied
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// MarkEmailed stamps emailed_at once. Rows already stamped are left untouched;
// the returned bool reports whether this call won the stamp.
func (r *Repository) MarkEmailed(ctx context.Context, id string, at time.Time) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("tip id is required")
	}
	result := r.db.WithContext(ctx).Model(&models.Tip{}).
		Where("id = ? AND emailed_at IS NULL", id).
		Update("emailed_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListQuery configures tenant-scoped tip listings.
type ListQuery struct {
	TenantID uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
}

// List returns tips for a tenant ordered newest first, with a cursor for the
// next page when more rows exist.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Tip, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Limit)

	q := r.db.WithContext(ctx).
		Where("tenant_id = ?", query.TenantID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1)

	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Tip
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}
