package eligibility

import (
	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
)

// EnsureChargeable enforces the canonical rules before a tenant may accept a
// new checkout: the tenant exists, is active, and its connected account can
// take destination charges.
func EnsureChargeable(tenant *models.Tenant) error {
	if tenant == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if tenant.Status != enums.TenantStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "tenant is suspended")
	}
	if tenant.StripeAccountID == nil || *tenant.StripeAccountID == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "tenant has no connected payment account")
	}
	if !tenant.AcceptsDestinationCharges() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "connected account cannot accept charges yet")
	}
	return nil
}
