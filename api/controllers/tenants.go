package controllers

import (
	"net/http"

	"github.com/angelmondragon/tipflow-backend/api/responses"
	tenantssvc "github.com/angelmondragon/tipflow-backend/internal/tenants"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

// TenantProfile returns the caller's tenant profile, including Connect
// onboarding state.
func TenantProfile(svc tenantssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenants service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetProfile(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
