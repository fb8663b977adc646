package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
)

// Ledger is the durable idempotency record for inbound provider events.
// Redelivery survives process restarts and Redis flushes because the ledger
// lives in the primary store; the conditional insert serializes concurrent
// deliveries of the same event id.
type Ledger struct {
	db *gorm.DB
}

// NewLedger binds the ledger to a GORM DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// SeenResult reports the ledger state for one event id.
type SeenResult struct {
	// IsNew is true when this call inserted the row.
	IsNew bool
	// Handled is true when a previous delivery completed all side effects.
	Handled bool
}

// RecordSeen inserts the event id if unseen. Exactly one concurrent caller
// observes IsNew; later deliveries see the existing row and its handled flag,
// allowing crash-recovery reprocessing of seen-but-unhandled events.
func (l *Ledger) RecordSeen(ctx context.Context, eventID, eventType string) (SeenResult, error) {
	if eventID == "" {
		return SeenResult{}, fmt.Errorf("event id is required")
	}

	row := models.WebhookEvent{
		ID:         eventID,
		Type:       eventType,
		ReceivedAt: time.Now().UTC(),
	}
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return SeenResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return SeenResult{IsNew: true}, nil
	}

	var existing models.WebhookEvent
	err := l.db.WithContext(ctx).Where("id = ?", eventID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Row vanished between insert and read; treat as new.
			return SeenResult{IsNew: true}, nil
		}
		return SeenResult{}, err
	}
	return SeenResult{Handled: existing.Handled}, nil
}

// MarkHandled flips the ledger entry after all side effects committed.
func (l *Ledger) MarkHandled(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	now := time.Now().UTC()
	return l.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"handled":    true,
			"handled_at": now,
		}).Error
}

// DeleteHandledBefore prunes handled ledger rows older than cutoff.
func (l *Ledger) DeleteHandledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := l.db.WithContext(ctx).
		Where("handled = ? AND received_at < ?", true, cutoff).
		Delete(&models.WebhookEvent{})
	return result.RowsAffected, result.Error
}
