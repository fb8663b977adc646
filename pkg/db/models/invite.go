package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// Invite is a pending membership invitation. Only the Argon2id hash of the
// capability token is stored; the raw token lives solely in the outbound email
// and the accept request.
type Invite struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index"`
	EmailLower string             `gorm:"column:email_lower;not null;index"`
	TokenHash  string             `gorm:"column:token_hash;not null"`
	Status     enums.InviteStatus `gorm:"column:status;type:invite_status;not null;default:'pending'"`
	ExpiresAt  time.Time          `gorm:"column:expires_at;not null"`
	InvitedBy  uuid.UUID          `gorm:"column:invited_by;type:uuid;not null"`
	AcceptedAt *time.Time         `gorm:"column:accepted_at"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
