package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/api/responses"
	"github.com/angelmondragon/tipflow-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/tipflow-backend/internal/checkout"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

type checkoutRequest struct {
	TenantID     uuid.UUID  `json:"tenant_id" validate:"required"`
	Kind         string     `json:"kind" validate:"required"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency" validate:"omitempty,len=3"`
	Memo         string     `json:"memo" validate:"omitempty,max=280"`
	EmployeeID   *uuid.UUID `json:"employee_id,omitempty"`
	EmployeeName string     `json:"employee_name,omitempty" validate:"omitempty,max=120"`
	PlanID       *uuid.UUID `json:"plan_id,omitempty"`
}

// CheckoutIntent starts a provider checkout session for a tip or a
// subscription. The payer is anonymous, so the tenant is named in the body
// rather than taken from auth context.
func CheckoutIntent(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateIntent(r.Context(), checkoutsvc.IntentInput{
			TenantID:     payload.TenantID,
			Kind:         enums.CheckoutKind(payload.Kind),
			Amount:       payload.Amount,
			Currency:     payload.Currency,
			Memo:         validators.SanitizeString(payload.Memo, 280),
			EmployeeID:   payload.EmployeeID,
			EmployeeName: payload.EmployeeName,
			PlanID:       payload.PlanID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadySubscribed {
			// Admission rule tripped: nothing was created.
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
