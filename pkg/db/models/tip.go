package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// Tip is the durable payment record. The ID is assigned at intent time (or
// derived deterministically by the webhook handler) so confirmation events can
// upsert without creating duplicates. CreatedAt is set once and preserved
// across webhook-driven updates; EmailedAt is stamped at most once by the
// notification worker.
type Tip struct {
	ID                    string              `gorm:"column:id;primaryKey"`
	TenantID              uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	SessionID             *string             `gorm:"column:session_id;index"`
	Amount                int64               `gorm:"column:amount;not null"`
	Currency              string              `gorm:"column:currency;not null"`
	Status                enums.TipStatus     `gorm:"column:status;type:tip_status;not null;default:'pending'"`
	RecipientType         enums.RecipientType `gorm:"column:recipient_type;type:recipient_type;not null"`
	EmployeeID            *uuid.UUID          `gorm:"column:employee_id;type:uuid"`
	RecipientName         string              `gorm:"column:recipient_name;not null"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id"`
	FeeApplied            int64               `gorm:"column:fee_applied;not null;default:0"`
	Memo                  *string             `gorm:"column:memo"`
	EmailedAt             *time.Time          `gorm:"column:emailed_at"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
