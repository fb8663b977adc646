// Package payloads defines the versioned event schemas carried inside outbox
// envelopes. Consumers decode by (event_type, version), so fields here may be
// added but never renamed or repurposed.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// TipSucceededEvent is emitted exactly once when a tip first reaches the
// succeeded status. It carries everything the receipt mailer needs so the
// consumer never has to read the database. TipID is the provider-derived
// identifier, not a UUID.
type TipSucceededEvent struct {
	TipID         string              `json:"tipId"`
	TenantID      uuid.UUID           `json:"tenantId"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency"`
	FeeApplied    int64               `json:"feeApplied"`
	RecipientType enums.RecipientType `json:"recipientType"`
	RecipientName string              `json:"recipientName"`
	Memo          string              `json:"memo,omitempty"`
	SucceededAt   time.Time           `json:"succeededAt"`
}
