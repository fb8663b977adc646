package tips

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/pagination"
)

type listRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tip, error)
	List(ctx context.Context, query ListQuery) ([]models.Tip, *pagination.Cursor, error)
}

// Service exposes tenant-facing tip reads.
type Service interface {
	Get(ctx context.Context, tenantID uuid.UUID, tipID string) (*TipDTO, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo listRepository
}

// NewService builds a tip read service.
func NewService(repo listRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tips repository required")
	}
	return &service{repo: repo}, nil
}

// TipDTO is the serialized tip view.
type TipDTO struct {
	ID            string              `json:"id"`
	SessionID     *string             `json:"session_id,omitempty"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency"`
	Status        enums.TipStatus     `json:"status"`
	RecipientType enums.RecipientType `json:"recipient_type"`
	EmployeeID    *uuid.UUID          `json:"employee_id,omitempty"`
	RecipientName string              `json:"recipient_name"`
	FeeApplied    int64               `json:"fee_applied"`
	Memo          *string             `json:"memo,omitempty"`
	EmailedAt     *time.Time          `json:"emailed_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ListResult is one page of tips plus the cursor for the next page.
type ListResult struct {
	Tips       []TipDTO `json:"tips"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

func (s *service) Get(ctx context.Context, tenantID uuid.UUID, tipID string) (*TipDTO, error) {
	if tipID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tip id is required")
	}
	tip, err := s.repo.FindByID(ctx, tipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tip")
	}
	if tip == nil || tip.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tip not found")
	}
	dto := toDTO(*tip)
	return &dto, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, ListQuery{
		TenantID: tenantID,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tips")
	}

	result := &ListResult{Tips: make([]TipDTO, 0, len(rows))}
	for _, row := range rows {
		result.Tips = append(result.Tips, toDTO(row))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func toDTO(tip models.Tip) TipDTO {
	return TipDTO{
		ID:            tip.ID,
		SessionID:     tip.SessionID,
		Amount:        tip.Amount,
		Currency:      tip.Currency,
		Status:        tip.Status,
		RecipientType: tip.RecipientType,
		EmployeeID:    tip.EmployeeID,
		RecipientName: tip.RecipientName,
		FeeApplied:    tip.FeeApplied,
		Memo:          tip.Memo,
		EmailedAt:     tip.EmailedAt,
		CreatedAt:     tip.CreatedAt,
		UpdatedAt:     tip.UpdatedAt,
	}
}
