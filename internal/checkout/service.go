package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tipflow-backend/internal/tips"
	pkgcheckout "github.com/angelmondragon/tipflow-backend/pkg/checkout"
	"github.com/angelmondragon/tipflow-backend/pkg/config"
	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/eligibility"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/fees"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

// decimalHundred converts plan amounts from major to minor currency units.
var decimalHundred = decimal.NewFromInt(100)

type tenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (*models.Employee, error)
	Update(ctx context.Context, tenant *models.Tenant) error
}

type tipRepository interface {
	Create(ctx context.Context, tip *models.Tip) error
}

type sessionRepository interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
}

type planRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.BillingPlan, error)
	FindDefault(ctx context.Context) (*models.BillingPlan, error)
}

// Service builds provider checkout sessions from validated client intents.
type Service interface {
	CreateIntent(ctx context.Context, input IntentInput) (*IntentResult, error)
}

// ServiceParams groups the intent builder dependencies.
type ServiceParams struct {
	Tenants  tenantRepository
	Tips     tipRepository
	Sessions sessionRepository
	Plans    planRepository
	Provider ProviderClient
	Resolver *tips.Resolver
	Logger   *logger.Logger
	Checkout config.CheckoutConfig
	Stripe   config.StripeConfig
}

type service struct {
	tenants  tenantRepository
	tips     tipRepository
	sessions sessionRepository
	plans    planRepository
	provider ProviderClient
	resolver *tips.Resolver
	logg     *logger.Logger
	cfg      config.CheckoutConfig
	stripe   config.StripeConfig
	now      func() time.Time
}

// NewService builds the checkout intent service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	if params.Tips == nil {
		return nil, fmt.Errorf("tips repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plans repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("recipient resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tenants:  params.Tenants,
		tips:     params.Tips,
		sessions: params.Sessions,
		plans:    params.Plans,
		provider: params.Provider,
		resolver: params.Resolver,
		logg:     params.Logger,
		cfg:      params.Checkout,
		stripe:   params.Stripe,
		now:      time.Now,
	}, nil
}

// IntentInput is the client-supplied checkout request.
type IntentInput struct {
	TenantID     uuid.UUID
	Kind         enums.CheckoutKind
	Amount       int64
	Currency     string
	Memo         string
	EmployeeID   *uuid.UUID
	EmployeeName string
	PlanID       *uuid.UUID
}

// IntentResult carries either a checkout redirect or, when the admission rule
// trips, a billing portal redirect.
type IntentResult struct {
	CheckoutURL       string `json:"checkout_url,omitempty"`
	SessionID         string `json:"session_id,omitempty"`
	TipID             string `json:"tip_id,omitempty"`
	AlreadySubscribed bool   `json:"already_subscribed,omitempty"`
	PortalURL         string `json:"portal_url,omitempty"`
}

func (s *service) CreateIntent(ctx context.Context, input IntentInput) (*IntentResult, error) {
	if !input.Kind.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown checkout kind %q", input.Kind))
	}
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	tenant, err := s.tenants.FindByID(ctx, input.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if tenant.Status != enums.TenantStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tenant is not active")
	}

	if input.Kind == enums.CheckoutKindSubscription {
		return s.createSubscriptionIntent(ctx, tenant, input)
	}
	return s.createChargeIntent(ctx, tenant, input)
}

// createChargeIntent covers one-off payments and both tip variants. These all
// flow as destination charges through the tenant's connected account.
func (s *service) createChargeIntent(ctx context.Context, tenant *models.Tenant, input IntentInput) (*IntentResult, error) {
	currency := pkgcheckout.NormalizeCurrency(input.Currency, s.cfg.DefaultCurrency)
	if err := pkgcheckout.ValidateAmount(pkgcheckout.AmountValidationInput{
		Amount:   input.Amount,
		Currency: currency,
		MaxMinor: s.cfg.MaxAmountMinor,
	}); err != nil {
		return nil, err
	}
	if input.Kind == enums.CheckoutKindEmployeeTip && (input.EmployeeID == nil || *input.EmployeeID == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id is required for employee tips")
	}
	if err := eligibility.EnsureChargeable(tenant); err != nil {
		return nil, err
	}

	fee := fees.Calc(input.Amount, tenant.FeePercent, tenant.FeeFixed)

	meta := SessionMetadata{
		TenantID:   tenant.ID,
		Kind:       input.Kind,
		FeeApplied: fee,
		StoreName:  tenant.Name,
	}

	var tipID string
	if input.Kind.Tip() {
		recipient := s.resolver.Resolve(ctx, tips.ResolveInput{
			TenantID:     tenant.ID,
			EmployeeID:   input.EmployeeID,
			ExplicitName: input.EmployeeName,
		})

		tipID = "tip_" + uuid.NewString()
		tip := &models.Tip{
			ID:            tipID,
			TenantID:      tenant.ID,
			Amount:        input.Amount,
			Currency:      currency,
			Status:        enums.TipStatusPending,
			RecipientType: recipient.Type,
			EmployeeID:    recipient.EmployeeID,
			RecipientName: recipient.Name,
			FeeApplied:    fee,
		}
		if memo := strings.TrimSpace(input.Memo); memo != "" {
			tip.Memo = &memo
		}
		if err := s.tips.Create(ctx, tip); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pending tip")
		}

		meta.TipID = tipID
		meta.EmployeeID = recipient.EmployeeID
		if recipient.Type == enums.RecipientTypeEmployee {
			meta.EmployeeName = recipient.Name
		}
	}

	params := s.chargeSessionParams(tenant, input, currency, fee, meta)
	providerCtx, cancel := s.providerContext(ctx)
	defer cancel()

	session, err := s.provider.CreateCheckoutSession(providerCtx, params)
	if err != nil {
		// The pending tip is intentionally left behind as an audit trail for
		// manual reconciliation.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider checkout session")
	}

	row := &models.CheckoutSession{
		ID:         session.ID,
		TenantID:   tenant.ID,
		Amount:     input.Amount,
		Currency:   currency,
		Status:     enums.SessionStatusPending,
		Kind:       input.Kind,
		EmployeeID: input.EmployeeID,
		FeeApplied: fee,
	}
	if tipID != "" {
		row.TipID = &tipID
	}
	if memo := strings.TrimSpace(input.Memo); memo != "" {
		row.Memo = &memo
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout session")
	}

	return &IntentResult{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		TipID:       tipID,
	}, nil
}

func (s *service) chargeSessionParams(tenant *models.Tenant, input IntentInput, currency string, fee int64, meta SessionMetadata) *stripe.CheckoutSessionParams {
	name := "Payment to " + tenant.Name
	if input.Kind.Tip() {
		name = "Tip for " + firstNonEmpty(meta.EmployeeName, tenant.Name)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.stripe.SuccessURL),
		CancelURL:  stripe.String(s.stripe.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(input.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(fee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(*tenant.StripeAccountID),
			},
		},
		Metadata: meta.ToMap(),
	}
	params.PaymentIntentData.Metadata = meta.ToMap()
	return params
}

// createSubscriptionIntent applies the single-active-subscription admission
// rule before building a subscription checkout. The rule is a best-effort
// read-then-decide check against the provider's live list; concurrent requests
// can race past it and are corrected through the billing portal.
func (s *service) createSubscriptionIntent(ctx context.Context, tenant *models.Tenant, input IntentInput) (*IntentResult, error) {
	plan, err := s.resolvePlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}

	providerCtx, cancel := s.providerContext(ctx)
	defer cancel()

	customerID, err := s.ensureCustomer(providerCtx, tenant)
	if err != nil {
		return nil, err
	}

	existing, err := s.provider.ListSubscriptions(providerCtx, &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list provider subscriptions")
	}
	for _, sub := range existing {
		if sub == nil {
			continue
		}
		if enums.SubscriptionStatus(sub.Status).BlocksNewSubscription() {
			portal, portalErr := s.provider.CreatePortalSession(providerCtx, &stripe.BillingPortalSessionParams{
				Customer:  stripe.String(customerID),
				ReturnURL: stripe.String(s.stripe.PortalReturn),
			})
			if portalErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, portalErr, "create billing portal session")
			}
			return &IntentResult{
				AlreadySubscribed: true,
				PortalURL:         portal.URL,
			}, nil
		}
	}

	meta := SessionMetadata{
		TenantID:  tenant.ID,
		Kind:      enums.CheckoutKindSubscription,
		StoreName: tenant.Name,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(s.stripe.SuccessURL),
		CancelURL:  stripe.String(s.stripe.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: meta.ToMap(),
	}

	session, err := s.provider.CreateCheckoutSession(providerCtx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider checkout session")
	}

	row := &models.CheckoutSession{
		ID:       session.ID,
		TenantID: tenant.ID,
		Amount:   plan.Amount.Mul(decimalHundred).IntPart(),
		Currency: plan.Currency,
		Status:   enums.SessionStatusPending,
		Kind:     enums.CheckoutKindSubscription,
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout session")
	}

	return &IntentResult{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	}, nil
}

func (s *service) resolvePlan(ctx context.Context, planID *uuid.UUID) (*models.BillingPlan, error) {
	if planID != nil && *planID != uuid.Nil {
		plan, err := s.plans.FindByID(ctx, *planID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load billing plan")
		}
		if plan == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "billing plan not found")
		}
		return plan, nil
	}
	plan, err := s.plans.FindDefault(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default billing plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no default billing plan configured")
	}
	return plan, nil
}

// ensureCustomer returns the tenant's provider customer id, creating and
// persisting one on first use.
func (s *service) ensureCustomer(ctx context.Context, tenant *models.Tenant) (string, error) {
	if tenant.StripeCustomerID != nil && *tenant.StripeCustomerID != "" {
		return *tenant.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Name: stripe.String(tenant.Name),
	}
	params.AddMetadata(metaKeyTenantID, tenant.ID.String())
	created, err := s.provider.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider customer")
	}
	tenant.StripeCustomerID = &created.ID
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist customer id")
	}
	return created.ID, nil
}

func (s *service) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
