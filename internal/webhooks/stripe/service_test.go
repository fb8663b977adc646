package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/internal/checkout"
	"github.com/angelmondragon/tipflow-backend/internal/tenants"
	"github.com/angelmondragon/tipflow-backend/internal/tips"
	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  stripe_account_id TEXT,
  stripe_customer_id TEXT,
  connect_charges_enabled INTEGER NOT NULL DEFAULT 0,
  connect_payouts_enabled INTEGER NOT NULL DEFAULT 0,
  connect_details_submitted INTEGER NOT NULL DEFAULT 0,
  fee_percent INTEGER NOT NULL DEFAULT 0,
  fee_fixed INTEGER NOT NULL DEFAULT 0,
  notification_emails TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS employees (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  email TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS checkout_sessions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  kind TEXT NOT NULL,
  employee_id TEXT,
  tip_id TEXT,
  fee_applied INTEGER NOT NULL DEFAULT 0,
  memo TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS tips (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  session_id TEXT,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  recipient_type TEXT NOT NULL,
  employee_id TEXT,
  recipient_name TEXT NOT NULL,
  stripe_payment_intent_id TEXT,
  fee_applied INTEGER NOT NULL DEFAULT 0,
  memo TEXT,
  emailed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  received_at DATETIME NOT NULL,
  handled INTEGER NOT NULL DEFAULT 0,
  handled_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate
  ON outbox_events (event_type, aggregate_type, aggregate_id);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "webhooks-test", Output: io.Discard})
	tenantRepo := tenants.NewRepository(db)
	service, err := NewService(ServiceParams{
		Ledger:            NewLedger(db),
		Sessions:          checkout.NewRepository(db),
		Tips:              tips.NewRepository(db),
		Tenants:           tenantRepo,
		Resolver:          tips.NewResolver(tenantRepo),
		Outbox:            outbox.NewService(outbox.NewRepository(db), logg),
		TransactionRunner: &testTxRunner{db: db},
		Logger:            logg,
	})
	require.NoError(t, err)
	return service
}

func seedTenant(t *testing.T, db *gorm.DB, accountID string) *models.Tenant {
	t.Helper()
	acct := accountID
	tenant := &models.Tenant{
		ID:              uuid.New(),
		Name:            "Blue Door Cafe",
		Status:          enums.TenantStatusActive,
		StripeAccountID: &acct,
		ChargesEnabled:  true,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func completedSessionEvent(t *testing.T, session *stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestService_ProcessCompletedSessionCreatesTip(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)
	tenant := seedTenant(t, db, "acct_1NqyA22eZvKYlo2C")

	employeeID := uuid.New()
	require.NoError(t, db.Create(&models.Employee{ID: employeeID, TenantID: tenant.ID, Name: "Aki"}).Error)
	require.NoError(t, db.Create(&models.CheckoutSession{
		ID:       "cs_test_100",
		TenantID: tenant.ID,
		Amount:   500,
		Currency: "usd",
		Status:   enums.SessionStatusPending,
		Kind:     enums.CheckoutKindEmployeeTip,
	}).Error)

	event := completedSessionEvent(t, &stripe.CheckoutSession{
		ID:            "cs_test_100",
		AmountTotal:   500,
		Currency:      stripe.CurrencyUSD,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_100"},
		Metadata: map[string]string{
			"tf_version":    "1",
			"tenant_id":     tenant.ID.String(),
			"tip_id":        "tip_100",
			"kind":          "employee_tip",
			"employee_id":   employeeID.String(),
			"employee_name": "Aki",
			"fee_applied":   "55",
		},
	})
	require.NoError(t, service.Process(context.Background(), event))

	var tip models.Tip
	require.NoError(t, db.Where("id = ?", "tip_100").First(&tip).Error)
	assert.Equal(t, enums.TipStatusSucceeded, tip.Status)
	assert.Equal(t, int64(500), tip.Amount)
	assert.Equal(t, "usd", tip.Currency)
	assert.Equal(t, enums.RecipientTypeEmployee, tip.RecipientType)
	assert.Equal(t, "Aki", tip.RecipientName)
	assert.Equal(t, int64(55), tip.FeeApplied)
	require.NotNil(t, tip.StripePaymentIntentID)
	assert.Equal(t, "pi_100", *tip.StripePaymentIntentID)

	var session models.CheckoutSession
	require.NoError(t, db.Where("id = ?", "cs_test_100").First(&session).Error)
	assert.Equal(t, enums.SessionStatusPaid, session.Status)

	var ledgerRow models.WebhookEvent
	require.NoError(t, db.Where("id = ?", event.ID).First(&ledgerRow).Error)
	assert.True(t, ledgerRow.Handled)

	var aggregateIDs []string
	require.NoError(t, db.Model(&models.OutboxEvent{}).Pluck("aggregate_id", &aggregateIDs).Error)
	require.Len(t, aggregateIDs, 1)
	assert.Equal(t, "tip_100", aggregateIDs[0])
}

func TestService_ProcessDuplicateDeliveryIsNoOp(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)
	tenant := seedTenant(t, db, "acct_dup")

	event := completedSessionEvent(t, &stripe.CheckoutSession{
		ID:          "cs_dup",
		AmountTotal: 700,
		Currency:    stripe.CurrencyUSD,
		Metadata: map[string]string{
			"tenant_id":  tenant.ID.String(),
			"tip_id":     "tip_dup",
			"kind":       "store_tip",
			"store_name": "Blue Door Cafe",
		},
	})
	require.NoError(t, service.Process(context.Background(), event))
	require.NoError(t, service.Process(context.Background(), event))

	var outboxCount int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)

	var tipCount int64
	require.NoError(t, db.Model(&models.Tip{}).Count(&tipCount).Error)
	assert.Equal(t, int64(1), tipCount)
}

func TestService_RedeliveryAfterCrashKeepsCreatedAtAndEmitsOnce(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)
	tenant := seedTenant(t, db, "acct_crash")

	intentTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.Tip{
		ID:            "tip_crash",
		TenantID:      tenant.ID,
		Amount:        900,
		Currency:      "usd",
		Status:        enums.TipStatusPending,
		RecipientType: enums.RecipientTypeStore,
		RecipientName: "Blue Door Cafe",
		CreatedAt:     intentTime,
	}).Error)

	event := completedSessionEvent(t, &stripe.CheckoutSession{
		ID:          "cs_crash",
		AmountTotal: 900,
		Currency:    stripe.CurrencyUSD,
		Metadata: map[string]string{
			"tenant_id":  tenant.ID.String(),
			"tip_id":     "tip_crash",
			"kind":       "store_tip",
			"store_name": "Blue Door Cafe",
		},
	})
	require.NoError(t, service.Process(context.Background(), event))

	// Simulate a crash after the handler committed but before the ledger was
	// flipped, then let the provider redeliver.
	require.NoError(t, db.Model(&models.WebhookEvent{}).
		Where("id = ?", event.ID).
		Update("handled", false).Error)
	require.NoError(t, service.Process(context.Background(), event))

	var tip models.Tip
	require.NoError(t, db.Where("id = ?", "tip_crash").First(&tip).Error)
	assert.Equal(t, enums.TipStatusSucceeded, tip.Status)
	assert.True(t, tip.CreatedAt.Equal(intentTime), "created_at must survive redelivery, got %v", tip.CreatedAt)

	var outboxCount int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)
}

func TestService_TipIDFallsBackToPaymentIntentThenSession(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)
	tenant := seedTenant(t, db, "acct_fallback")

	withIntent := completedSessionEvent(t, &stripe.CheckoutSession{
		ID:            "cs_fb_1",
		AmountTotal:   300,
		Currency:      stripe.CurrencyUSD,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_fb_1"},
		Metadata: map[string]string{
			"tenant_id": tenant.ID.String(),
			"kind":      "store_tip",
		},
	})
	require.NoError(t, service.Process(context.Background(), withIntent))

	withoutIntent := completedSessionEvent(t, &stripe.CheckoutSession{
		ID:          "cs_fb_2",
		AmountTotal: 400,
		Currency:    stripe.CurrencyUSD,
		Metadata: map[string]string{
			"tenant_id": tenant.ID.String(),
			"kind":      "store_tip",
		},
	})
	require.NoError(t, service.Process(context.Background(), withoutIntent))

	var byIntent models.Tip
	require.NoError(t, db.Where("id = ?", "pi_fb_1").First(&byIntent).Error)
	var bySession models.Tip
	require.NoError(t, db.Where("id = ?", "cs_fb_2").First(&bySession).Error)
}

func TestService_MissingTenantMetadataIsSkipped(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)

	event := completedSessionEvent(t, &stripe.CheckoutSession{
		ID:          "cs_no_meta",
		AmountTotal: 200,
		Currency:    stripe.CurrencyUSD,
		Metadata:    map[string]string{"kind": "store_tip"},
	})
	require.NoError(t, service.Process(context.Background(), event))

	var tipCount int64
	require.NoError(t, db.Model(&models.Tip{}).Count(&tipCount).Error)
	assert.Zero(t, tipCount)

	var ledgerRow models.WebhookEvent
	require.NoError(t, db.Where("id = ?", event.ID).First(&ledgerRow).Error)
	assert.False(t, ledgerRow.Handled, "skipped events stay unhandled for reconciliation")
}

func TestService_ExpiredSessionUpdatesStatus(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)
	tenant := seedTenant(t, db, "acct_exp")

	require.NoError(t, db.Create(&models.CheckoutSession{
		ID:       "cs_exp",
		TenantID: tenant.ID,
		Amount:   500,
		Currency: "usd",
		Status:   enums.SessionStatusPending,
		Kind:     enums.CheckoutKindStoreTip,
	}).Error)

	raw, err := json.Marshal(&stripe.CheckoutSession{ID: "cs_exp"})
	require.NoError(t, err)
	event := &stripe.Event{
		ID:   "evt_exp",
		Type: stripe.EventTypeCheckoutSessionExpired,
		Data: &stripe.EventData{Raw: raw},
	}
	require.NoError(t, service.Process(context.Background(), event))

	var session models.CheckoutSession
	require.NoError(t, db.Where("id = ?", "cs_exp").First(&session).Error)
	assert.Equal(t, enums.SessionStatusExpired, session.Status)
}

func TestService_AccountUpdatedSyncsConnectFlags(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)
	tenant := seedTenant(t, db, "acct_sync")
	require.NoError(t, db.Model(&models.Tenant{}).
		Where("id = ?", tenant.ID).
		Update("connect_charges_enabled", false).Error)

	raw, err := json.Marshal(&stripe.Account{
		ID:               "acct_sync",
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	})
	require.NoError(t, err)
	event := &stripe.Event{
		ID:   "evt_acct",
		Type: stripe.EventTypeAccountUpdated,
		Data: &stripe.EventData{Raw: raw},
	}
	require.NoError(t, service.Process(context.Background(), event))

	var updated models.Tenant
	require.NoError(t, db.Where("id = ?", tenant.ID).First(&updated).Error)
	assert.True(t, updated.ChargesEnabled)
	assert.True(t, updated.PayoutsEnabled)
	assert.True(t, updated.DetailsSubmitted)
}

func TestService_AccountUpdatedUnknownAccountIsSkipped(t *testing.T) {
	db := setupWebhookTestDB(t)
	service := newTestService(t, db)

	raw, err := json.Marshal(&stripe.Account{ID: "acct_unknown", ChargesEnabled: true})
	require.NoError(t, err)
	event := &stripe.Event{
		ID:   "evt_unknown_acct",
		Type: stripe.EventTypeAccountUpdated,
		Data: &stripe.EventData{Raw: raw},
	}
	require.NoError(t, service.Process(context.Background(), event))
}
