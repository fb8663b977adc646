package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

const webhookLedgerRetentionDays = 90

type WebhookLedgerRetentionJobParams struct {
	Logger    *logger.Logger
	Ledger    webhookLedgerPruner
	Retention int
}

type webhookLedgerPruner interface {
	DeleteHandledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewWebhookLedgerRetentionJob prunes handled webhook ledger rows. Rows seen
// but never handled stay forever; they mark deliveries that still need a
// human look.
func NewWebhookLedgerRetentionJob(params WebhookLedgerRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("webhook ledger required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = webhookLedgerRetentionDays
	}
	return &webhookLedgerRetentionJob{
		logg:      params.Logger,
		ledger:    params.Ledger,
		retention: retention,
		now:       time.Now,
	}, nil
}

type webhookLedgerRetentionJob struct {
	logg      *logger.Logger
	ledger    webhookLedgerPruner
	retention int
	now       func() time.Time
}

func (j *webhookLedgerRetentionJob) Name() string { return "webhook-ledger-retention" }

func (j *webhookLedgerRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.ledger.DeleteHandledBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("webhook ledger retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "webhook ledger retention complete")
	return nil
}
