package models

import "time"

// WebhookEvent is the idempotency ledger row for one provider event id.
// The row is inserted (handled=false) before any handler side effects run and
// flipped to handled only after every mutation for the event committed.
type WebhookEvent struct {
	ID         string     `gorm:"column:id;primaryKey"`
	Type       string     `gorm:"column:type;not null"`
	ReceivedAt time.Time  `gorm:"column:received_at;not null"`
	Handled    bool       `gorm:"column:handled;not null;default:false"`
	HandledAt  *time.Time `gorm:"column:handled_at"`
}
