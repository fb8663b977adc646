package invites

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// Repository persists membership invitations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to invite operations.
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

func (r *Repository) Create(ctx context.Context, invite *models.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	var invite models.Invite
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

func (r *Repository) FindPending(ctx context.Context, tenantID uuid.UUID, emailLower string) (*models.Invite, error) {
	var invite models.Invite
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND email_lower = ? AND status = ?", tenantID, emailLower, enums.InviteStatusPending).
		First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Invite, error) {
	var invites []models.Invite
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

func (r *Repository) Update(ctx context.Context, invite *models.Invite) error {
	return r.db.WithContext(ctx).Save(invite).Error
}

// ExpireStale flips pending invites whose deadline has passed.
func (r *Repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Invite{}).
		Where("status = ? AND expires_at < ?", enums.InviteStatusPending, now).
		Updates(map[string]any{
			"status":     enums.InviteStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
