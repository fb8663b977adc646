package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/internal/checkout"
	"github.com/angelmondragon/tipflow-backend/internal/tips"
	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/metrics"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox/payloads"
)

// errUnusableMetadata marks events whose session metadata cannot identify a
// tenant. They are acknowledged to the provider but never marked handled.
var errUnusableMetadata = errors.New("session metadata unusable")

type sessionRepository interface {
	WithTx(tx *gorm.DB) *checkout.Repository
	UpdateStatus(ctx context.Context, id string, status enums.SessionStatus) error
}

type tipRepository interface {
	WithTx(tx *gorm.DB) *tips.Repository
}

type tenantRepository interface {
	FindByStripeAccountID(ctx context.Context, accountID string) (*models.Tenant, error)
	UpdateConnectFlags(ctx context.Context, id uuid.UUID, charges, payouts, details bool) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledger interface {
	RecordSeen(ctx context.Context, eventID, eventType string) (SeenResult, error)
	MarkHandled(ctx context.Context, eventID string) error
}

// ServiceParams groups the webhook processor dependencies.
type ServiceParams struct {
	Ledger            ledger
	Sessions          sessionRepository
	Tips              tipRepository
	Tenants           tenantRepository
	Resolver          *tips.Resolver
	Outbox            *outbox.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.WebhookMetrics
}

// Service is the webhook event processor. Every delivery runs the same ladder:
// ledger seen, dispatch by type, ledger handled. Handlers are idempotent
// upserts so a crash between dispatch and MarkHandled is recovered by the
// provider's own retry.
type Service struct {
	ledger   ledger
	sessions sessionRepository
	tips     tipRepository
	tenants  tenantRepository
	resolver *tips.Resolver
	outbox   *outbox.Service
	txRunner txRunner
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
	now      func() time.Time
}

// NewService builds the webhook processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sessions repo required")
	}
	if params.Tips == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tips repo required")
	}
	if params.Tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenants repo required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		ledger:   params.Ledger,
		sessions: params.Sessions,
		tips:     params.Tips,
		tenants:  params.Tenants,
		resolver: params.Resolver,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

// Process runs one verified event through the ledger and its handler.
// A nil return maps to HTTP 200; any error maps to a retryable 5xx.
func (s *Service) Process(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	seen, err := s.ledger.RecordSeen(ctx, event.ID, string(event.Type))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record event seen")
	}
	if !seen.IsNew && seen.Handled {
		s.logg.Info(logCtx, "event already handled; skipping")
		s.metrics.IncDuplicate(string(event.Type))
		return nil
	}

	start := s.now()
	if err := s.dispatch(logCtx, event); err != nil {
		if errors.Is(err, errUnusableMetadata) {
			// The provider cannot correct the event, so failing the response
			// only causes infinite redelivery. The ledger row stays
			// handled=false, which keeps the event visible for manual
			// reconciliation.
			s.logg.Error(logCtx, "event skipped", err)
			s.metrics.IncSkipped(string(event.Type), "metadata")
			return nil
		}
		s.logg.Error(logCtx, "event handling failed", err)
		return err
	}
	s.metrics.ObserveHandle(string(event.Type), s.now().Sub(start))
	s.metrics.IncReceived(string(event.Type))

	if err := s.ledger.MarkHandled(ctx, event.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark event handled")
	}
	s.logg.Info(logCtx, "event handled")
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleSessionCompleted(ctx, event)
	case stripe.EventTypeCheckoutSessionExpired:
		return s.handleSessionStatus(ctx, event, enums.SessionStatusExpired)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return s.handleSessionStatus(ctx, event, enums.SessionStatusFailed)
	case stripe.EventTypeAccountUpdated:
		return s.handleAccountUpdated(ctx, event)
	default:
		return nil
	}
}

func (s *Service) handleSessionCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
	}

	meta, err := checkout.ParseMetadata(session.Metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", errUnusableMetadata, err)
	}

	tipID := stableTipID(meta, &session)

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.sessions.WithTx(tx).UpdateStatus(ctx, session.ID, enums.SessionStatusPaid); err != nil {
			return err
		}

		tipsTx := s.tips.WithTx(tx)
		existing, err := tipsTx.FindByID(ctx, tipID)
		if err != nil {
			return err
		}
		firstSuccess := existing == nil || existing.Status != enums.TipStatusSucceeded

		recipient := s.resolver.Resolve(ctx, tips.ResolveInput{
			TenantID:     meta.TenantID,
			EmployeeID:   meta.EmployeeID,
			MetadataName: recipientMetadataName(meta),
		})

		sessionID := session.ID
		tip := &models.Tip{
			ID:            tipID,
			TenantID:      meta.TenantID,
			SessionID:     &sessionID,
			Amount:        session.AmountTotal,
			Currency:      string(session.Currency),
			Status:        enums.TipStatusSucceeded,
			RecipientType: recipient.Type,
			EmployeeID:    recipient.EmployeeID,
			RecipientName: recipient.Name,
			FeeApplied:    meta.FeeApplied,
		}
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			intentID := session.PaymentIntent.ID
			tip.StripePaymentIntentID = &intentID
		}

		merged, err := tipsTx.Upsert(ctx, tip)
		if err != nil {
			return err
		}

		if !firstSuccess {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTipSucceeded,
			AggregateType: enums.AggregateTip,
			AggregateID:   merged.ID,
			Version:       1,
			Data: payloads.TipSucceededEvent{
				TipID:         merged.ID,
				TenantID:      merged.TenantID,
				Amount:        merged.Amount,
				Currency:      merged.Currency,
				FeeApplied:    merged.FeeApplied,
				RecipientType: merged.RecipientType,
				RecipientName: merged.RecipientName,
				Memo:          derefString(merged.Memo),
				SucceededAt:   s.now().UTC(),
			},
		})
	})
}

func (s *Service) handleSessionStatus(ctx context.Context, event *stripe.Event, status enums.SessionStatus) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
	}
	return s.sessions.UpdateStatus(ctx, session.ID, status)
}

// handleAccountUpdated is the only path by which Connect onboarding completion
// becomes visible to the rest of the system.
func (s *Service) handleAccountUpdated(ctx context.Context, event *stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode account")
	}

	tenant, err := s.tenants.FindByStripeAccountID(ctx, account.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up tenant by account")
	}
	if tenant == nil {
		s.logg.Info(s.logg.WithField(ctx, "account_id", account.ID), "no tenant for account; skipping")
		return nil
	}
	return s.tenants.UpdateConnectFlags(ctx, tenant.ID, account.ChargesEnabled, account.PayoutsEnabled, account.DetailsSubmitted)
}

// stableTipID derives the payment record id, in priority order: explicit
// intent id from metadata, provider payment-intent id, provider session id.
// The same logical payment always maps to the same record even when metadata
// is partially lost.
func stableTipID(meta checkout.SessionMetadata, session *stripe.CheckoutSession) string {
	if meta.TipID != "" {
		return meta.TipID
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		return session.PaymentIntent.ID
	}
	return session.ID
}

func recipientMetadataName(meta checkout.SessionMetadata) string {
	if meta.EmployeeID != nil {
		return meta.EmployeeName
	}
	return meta.StoreName
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
