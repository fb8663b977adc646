package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox/payloads"
)

const tipReceiptConsumer = "tip-receipts"

type tipRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tip, error)
	MarkEmailed(ctx context.Context, id string, at time.Time) (bool, error)
}

type tenantDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Consumer turns tip.succeeded events into receipt emails. The Redis
// idempotency mark guards against Pub/Sub redelivery; the conditional
// emailed_at stamp guards against everything else, so even a consumer rebuilt
// with a fresh Redis sends at most one receipt per tip.
type Consumer struct {
	tips         tipRepository
	tenants      tenantDirectory
	mailer       Mailer
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the receipt consumer.
func NewConsumer(tips tipRepository, tenants tenantDirectory, mailer Mailer, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if tips == nil {
		return nil, fmt.Errorf("tips repository required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant directory required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("payments subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		tips:         tips,
		tenants:      tenants,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventTipSucceeded) {
		c.logg.Info(logCtx, "skipping non-tip event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, tipReceiptConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.TipSucceededEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, tipReceiptConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"tip_id":    payload.TipID,
		"tenant_id": payload.TenantID.String(),
	})
	if err := c.sendReceipt(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "receipt delivery failed", err)
		_ = c.idempotency.Delete(ctx, tipReceiptConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) sendReceipt(ctx context.Context, payload payloads.TipSucceededEvent, logCtx context.Context) error {
	tenant, err := c.tenants.FindByID(ctx, payload.TenantID)
	if err != nil {
		return err
	}
	if tenant == nil || len(tenant.NotificationEmails) == 0 {
		c.logg.Info(logCtx, "no notification emails configured; skipping receipt")
		return nil
	}

	tip, err := c.tips.FindByID(ctx, payload.TipID)
	if err != nil {
		return err
	}
	if tip == nil {
		c.logg.Info(logCtx, "tip record missing; skipping receipt")
		return nil
	}
	if tip.EmailedAt != nil {
		c.logg.Info(logCtx, "receipt already sent")
		return nil
	}

	if err := c.mailer.Send(ctx, buildReceipt(tenant, payload)); err != nil {
		return err
	}

	stamped, err := c.tips.MarkEmailed(ctx, payload.TipID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !stamped {
		c.logg.Info(logCtx, "receipt stamped by a concurrent worker")
		return nil
	}
	c.logg.Info(logCtx, "receipt sent")
	return nil
}

func buildReceipt(tenant *models.Tenant, payload payloads.TipSucceededEvent) Message {
	amount := decimal.NewFromInt(payload.Amount).Div(decimal.NewFromInt(100)).StringFixed(2)
	subject := fmt.Sprintf("New tip received: %s %s", amount, payload.Currency)
	body := fmt.Sprintf(
		"%s received a %s %s tip for %s.",
		tenant.Name, amount, payload.Currency, payload.RecipientName,
	)
	if payload.Memo != "" {
		body = fmt.Sprintf("%s Memo: %s", body, payload.Memo)
	}
	return Message{
		To:      append([]string(nil), tenant.NotificationEmails...),
		Subject: subject,
		Body:    body,
	}
}
