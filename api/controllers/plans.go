package controllers

import (
	"net/http"

	"github.com/angelmondragon/tipflow-backend/api/responses"
	billingsvc "github.com/angelmondragon/tipflow-backend/internal/billing"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

// ListPlans returns the active subscription plans. Public so the pricing
// page can render without auth.
func ListPlans(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"plans": plans})
	}
}
