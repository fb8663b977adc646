package checkout

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// Repository handles checkout session persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to checkout session operations.
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

// Create persists a new checkout session row.
func (r *Repository) Create(ctx context.Context, session *models.CheckoutSession) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID loads a session by its provider id. Returns nil when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.CheckoutSession, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// UpdateStatus moves a session to the given status. Missing rows are a no-op:
// expiry events can arrive for sessions created before this table existed.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status enums.SessionStatus) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	return r.db.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("id = ?", id).
		Update("status", status).Error
}
