package invites

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/config"
	dbpkg "github.com/angelmondragon/tipflow-backend/pkg/db"
	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/security"
)

// Service owns the invitation lifecycle. The raw capability token exists only
// in the Create response and the Accept request; the store holds its Argon2id
// hash.
type Service struct {
	repo *Repository
	cfg  config.InvitesConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the invites service.
func NewService(repo *Repository, cfg config.InvitesConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invites repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{repo: repo, cfg: cfg, logg: logg, now: time.Now}, nil
}

// InviteDTO is the API view of an invite. Token is populated only by Create.
type InviteDTO struct {
	ID        uuid.UUID          `json:"id"`
	TenantID  uuid.UUID          `json:"tenantId"`
	Email     string             `json:"email"`
	Status    enums.InviteStatus `json:"status"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Token     string             `json:"token,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// CreateInput carries a new invitation request.
type CreateInput struct {
	TenantID  uuid.UUID
	Email     string
	InvitedBy uuid.UUID
}

// Create issues a new invite. At most one pending invite exists per
// (tenant, email); a second request conflicts instead of rotating the token.
func (s *Service) Create(ctx context.Context, input CreateInput) (*InviteDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	existing, err := s.repo.FindPending(ctx, input.TenantID, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up pending invite")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a pending invite already exists for this email")
	}

	token, err := security.NewInviteToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite token")
	}
	hash, err := security.HashToken(token, security.DefaultParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash invite token")
	}

	invite := &models.Invite{
		ID:         uuid.New(),
		TenantID:   input.TenantID,
		EmailLower: email,
		TokenHash:  hash,
		Status:     enums.InviteStatusPending,
		ExpiresAt:  s.now().Add(s.ttl()),
		InvitedBy:  input.InvitedBy,
	}
	if err := s.repo.Create(ctx, invite); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_invites_tenant_email_pending") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a pending invite already exists for this email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist invite")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"invite_id": invite.ID.String(),
		"tenant_id": invite.TenantID.String(),
	}), "invite created")

	dto := toDTO(invite)
	dto.Token = token
	return &dto, nil
}

// AcceptInput carries the public accept request.
type AcceptInput struct {
	InviteID uuid.UUID
	Token    string
}

// Accept redeems an invite. Expiry is checked lazily here as well as by the
// cron sweep, so a stale invite cannot be redeemed between sweeps.
func (s *Service) Accept(ctx context.Context, input AcceptInput) (*InviteDTO, error) {
	if input.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invite token is required")
	}
	invite, err := s.repo.FindByID(ctx, input.InviteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up invite")
	}
	if invite == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
	}
	if invite.Status != enums.InviteStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invite is no longer pending")
	}
	now := s.now()
	if now.After(invite.ExpiresAt) {
		invite.Status = enums.InviteStatusExpired
		if err := s.repo.Update(ctx, invite); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire invite")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invite has expired")
	}

	ok, err := security.VerifyToken(input.Token, invite.TokenHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify invite token")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invite token mismatch")
	}

	invite.Status = enums.InviteStatusAccepted
	invite.AcceptedAt = &now
	if err := s.repo.Update(ctx, invite); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invite")
	}

	s.logg.Info(s.logg.WithField(ctx, "invite_id", invite.ID.String()), "invite accepted")
	dto := toDTO(invite)
	return &dto, nil
}

// Revoke cancels a pending invite. Tenant-scoped: an invite belonging to a
// different tenant reads as not found.
func (s *Service) Revoke(ctx context.Context, tenantID, inviteID uuid.UUID) error {
	invite, err := s.repo.FindByID(ctx, inviteID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up invite")
	}
	if invite == nil || invite.TenantID != tenantID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
	}
	if invite.Status != enums.InviteStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invite is no longer pending")
	}
	invite.Status = enums.InviteStatusRevoked
	if err := s.repo.Update(ctx, invite); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke invite")
	}
	return nil
}

// List returns all invites for a tenant, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]InviteDTO, error) {
	rows, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invites")
	}
	out := make([]InviteDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

// ExpireStale sweeps expired pending invites. Invoked by the cron worker.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	return s.repo.ExpireStale(ctx, s.now())
}

func (s *Service) ttl() time.Duration {
	if s.cfg.TTL > 0 {
		return s.cfg.TTL
	}
	return 7 * 24 * time.Hour
}

func toDTO(invite *models.Invite) InviteDTO {
	return InviteDTO{
		ID:        invite.ID,
		TenantID:  invite.TenantID,
		Email:     invite.EmailLower,
		Status:    invite.Status,
		ExpiresAt: invite.ExpiresAt,
		CreatedAt: invite.CreatedAt,
	}
}
