package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/api/responses"
	"github.com/angelmondragon/tipflow-backend/api/validators"
	invitessvc "github.com/angelmondragon/tipflow-backend/internal/invites"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type acceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreateInvite issues a staff invitation for the caller's tenant. The raw
// token appears once in this response and is stored only as a hash.
func CreateInvite(svc *invitessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invites service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createInviteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invite, err := svc.Create(r.Context(), invitessvc.CreateInput{
			TenantID:  tenantID,
			Email:     payload.Email,
			InvitedBy: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invite)
	}
}

// ListInvites returns the tenant's invites newest first.
func ListInvites(svc *invitessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invites service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invites, err := svc.List(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"invites": invites})
	}
}

// RevokeInvite cancels a pending invite belonging to the caller's tenant.
func RevokeInvite(svc *invitessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invites service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inviteID, err := uuid.Parse(chi.URLParam(r, "inviteId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invite id"))
			return
		}

		if err := svc.Revoke(r.Context(), tenantID, inviteID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

// AcceptInvite redeems an invite token. Public: the invitee has no account
// yet when they follow the link.
func AcceptInvite(svc *invitessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invites service unavailable"))
			return
		}

		inviteID, err := uuid.Parse(chi.URLParam(r, "inviteId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invite id"))
			return
		}

		var payload acceptInviteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invite, err := svc.Accept(r.Context(), invitessvc.AcceptInput{
			InviteID: inviteID,
			Token:    payload.Token,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invite)
	}
}
