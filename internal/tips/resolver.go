package tips

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

const (
	fallbackEmployeeName = "Staff"
	fallbackStoreName    = "Store"
)

type directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (*models.Employee, error)
}

// Recipient is the resolved payment recipient.
type Recipient struct {
	Type       enums.RecipientType
	EmployeeID *uuid.UUID
	Name       string
}

// Resolver determines the display recipient for a tip. Confirmation events may
// arrive after the tenant or employee was renamed or deleted, so names carried
// in request or metadata take priority over live lookups, and a literal
// fallback covers records with neither.
type Resolver struct {
	dir directory
}

// NewResolver builds a recipient resolver over the tenant directory.
func NewResolver(dir directory) *Resolver {
	return &Resolver{dir: dir}
}

// ResolveInput carries the fragments available at resolution time.
// ExplicitName comes from the client request; MetadataName from the provider
// session metadata captured at intent time.
type ResolveInput struct {
	TenantID     uuid.UUID
	EmployeeID   *uuid.UUID
	ExplicitName string
	MetadataName string
}

// Resolve returns the recipient variant with the best available display name.
// Lookup failures degrade to the literal fallback instead of failing the
// caller; a tip with a generic name beats a lost tip.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) Recipient {
	if input.EmployeeID != nil && *input.EmployeeID != uuid.Nil {
		return Recipient{
			Type:       enums.RecipientTypeEmployee,
			EmployeeID: input.EmployeeID,
			Name:       r.employeeName(ctx, input),
		}
	}
	return Recipient{
		Type: enums.RecipientTypeStore,
		Name: r.storeName(ctx, input),
	}
}

func (r *Resolver) employeeName(ctx context.Context, input ResolveInput) string {
	if name := strings.TrimSpace(input.ExplicitName); name != "" {
		return name
	}
	if name := strings.TrimSpace(input.MetadataName); name != "" {
		return name
	}
	if r.dir != nil {
		employee, err := r.dir.FindEmployee(ctx, input.TenantID, *input.EmployeeID)
		if err == nil && employee != nil && strings.TrimSpace(employee.Name) != "" {
			return employee.Name
		}
	}
	return fallbackEmployeeName
}

func (r *Resolver) storeName(ctx context.Context, input ResolveInput) string {
	if name := strings.TrimSpace(input.MetadataName); name != "" {
		return name
	}
	if r.dir != nil {
		tenant, err := r.dir.FindByID(ctx, input.TenantID)
		if err == nil && tenant != nil && strings.TrimSpace(tenant.Name) != "" {
			return tenant.Name
		}
	}
	return fallbackStoreName
}
