package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// Tenant is the canonical store/business record. StripeAccountID is set once
// Connect onboarding completes; the connect_* flags are owned by the webhook
// processor (account.updated) and must not be written anywhere else.
type Tenant struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string             `gorm:"column:name;not null"`
	Status             enums.TenantStatus `gorm:"column:status;type:tenant_status;not null;default:'active'"`
	StripeAccountID    *string            `gorm:"column:stripe_account_id;uniqueIndex"`
	StripeCustomerID   *string            `gorm:"column:stripe_customer_id"`
	ChargesEnabled     bool               `gorm:"column:connect_charges_enabled;not null;default:false"`
	PayoutsEnabled     bool               `gorm:"column:connect_payouts_enabled;not null;default:false"`
	DetailsSubmitted   bool               `gorm:"column:connect_details_submitted;not null;default:false"`
	FeePercent         int                `gorm:"column:fee_percent;not null;default:0"`
	FeeFixed           int64              `gorm:"column:fee_fixed;not null;default:0"`
	NotificationEmails pq.StringArray     `gorm:"column:notification_emails;type:text[]"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// AcceptsDestinationCharges reports whether the tenant can take Connect
// destination-charge payments.
func (t *Tenant) AcceptsDestinationCharges() bool {
	if t == nil {
		return false
	}
	return t.StripeAccountID != nil && *t.StripeAccountID != "" && t.ChargesEnabled
}
