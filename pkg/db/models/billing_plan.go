package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// BillingPlan describes a platform subscription plan backed by a Stripe price.
type BillingPlan struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	StripePriceID string           `gorm:"column:stripe_price_id;not null;unique"`
	Amount        decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string           `gorm:"column:currency;not null"`
	Interval      string           `gorm:"column:interval;not null;default:'month'"`
	Status        enums.PlanStatus `gorm:"column:status;type:plan_status;not null;default:'active'"`
	IsDefault     bool             `gorm:"column:is_default;not null;default:false"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
