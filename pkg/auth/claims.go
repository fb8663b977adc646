package auth

import (
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims represents the typed JWT issued by the identity service.
// This service only verifies tokens; minting lives upstream.
type AccessTokenClaims struct {
	UserID   uuid.UUID        `json:"user_id"`
	TenantID *uuid.UUID       `json:"tenant_id,omitempty"`
	Role     enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
