package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// CheckoutSession is the intent-time audit record for a provider checkout
// session. Rows are never deleted; status moves off pending only through the
// webhook processor.
type CheckoutSession struct {
	ID         string              `gorm:"column:id;primaryKey"`
	TenantID   uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	Amount     int64               `gorm:"column:amount;not null"`
	Currency   string              `gorm:"column:currency;not null"`
	Status     enums.SessionStatus `gorm:"column:status;type:session_status;not null;default:'pending'"`
	Kind       enums.CheckoutKind  `gorm:"column:kind;type:checkout_kind;not null"`
	EmployeeID *uuid.UUID          `gorm:"column:employee_id;type:uuid"`
	TipID      *string             `gorm:"column:tip_id;index"`
	FeeApplied int64               `gorm:"column:fee_applied;not null;default:0"`
	Memo       *string             `gorm:"column:memo"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
