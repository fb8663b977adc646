package checkout

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tipflow-backend/internal/tips"
	"github.com/angelmondragon/tipflow-backend/pkg/config"
	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

type fakeTenantRepo struct {
	tenants   map[uuid.UUID]*models.Tenant
	employees map[uuid.UUID]*models.Employee
	updated   []*models.Tenant
}

func (f *fakeTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	return f.tenants[id], nil
}

func (f *fakeTenantRepo) FindEmployee(_ context.Context, _ uuid.UUID, employeeID uuid.UUID) (*models.Employee, error) {
	return f.employees[employeeID], nil
}

func (f *fakeTenantRepo) Update(_ context.Context, tenant *models.Tenant) error {
	f.updated = append(f.updated, tenant)
	return nil
}

type fakeTipRepo struct {
	created []*models.Tip
	err     error
}

func (f *fakeTipRepo) Create(_ context.Context, tip *models.Tip) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, tip)
	return nil
}

type fakeSessionRepo struct {
	created []*models.CheckoutSession
	err     error
}

func (f *fakeSessionRepo) Create(_ context.Context, session *models.CheckoutSession) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, session)
	return nil
}

type fakePlanRepo struct {
	plans      map[uuid.UUID]*models.BillingPlan
	defaultOne *models.BillingPlan
}

func (f *fakePlanRepo) FindByID(_ context.Context, id uuid.UUID) (*models.BillingPlan, error) {
	return f.plans[id], nil
}

func (f *fakePlanRepo) FindDefault(_ context.Context) (*models.BillingPlan, error) {
	return f.defaultOne, nil
}

type fakeProvider struct {
	session       *stripe.CheckoutSession
	sessionErr    error
	sessionParams *stripe.CheckoutSessionParams
	portal        *stripe.BillingPortalSession
	subscriptions []*stripe.Subscription
	customer      *stripe.Customer
	customerCalls int
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessionParams = params
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, _ *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return f.portal, nil
}

func (f *fakeProvider) ListSubscriptions(_ context.Context, _ *stripe.SubscriptionListParams) ([]*stripe.Subscription, error) {
	return f.subscriptions, nil
}

func (f *fakeProvider) CreateCustomer(_ context.Context, _ *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customerCalls++
	return f.customer, nil
}

type intentFixture struct {
	tenantID   uuid.UUID
	employeeID uuid.UUID
	tenants    *fakeTenantRepo
	tips       *fakeTipRepo
	sessions   *fakeSessionRepo
	plans      *fakePlanRepo
	provider   *fakeProvider
	svc        Service
}

func newIntentFixture(t *testing.T) *intentFixture {
	t.Helper()

	tenantID := uuid.New()
	employeeID := uuid.New()
	accountID := "acct_" + uuid.NewString()

	tenantRepo := &fakeTenantRepo{
		tenants: map[uuid.UUID]*models.Tenant{
			tenantID: {
				ID:              tenantID,
				Name:            "Blue Door Cafe",
				Status:          enums.TenantStatusActive,
				StripeAccountID: &accountID,
				ChargesEnabled:  true,
				FeePercent:      5,
				FeeFixed:        30,
			},
		},
		employees: map[uuid.UUID]*models.Employee{
			employeeID: {ID: employeeID, TenantID: tenantID, Name: "Maya"},
		},
	}
	tipRepo := &fakeTipRepo{}
	sessionRepo := &fakeSessionRepo{}
	planRepo := &fakePlanRepo{
		defaultOne: &models.BillingPlan{
			ID:            uuid.New(),
			Name:          "Standard",
			StripePriceID: "price_standard",
			Amount:        decimal.NewFromFloat(29.00),
			Currency:      "usd",
		},
	}
	provider := &fakeProvider{
		session:  &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"},
		portal:   &stripe.BillingPortalSession{URL: "https://portal.example/session"},
		customer: &stripe.Customer{ID: "cus_test_123"},
	}

	svc, err := NewService(ServiceParams{
		Tenants:  tenantRepo,
		Tips:     tipRepo,
		Sessions: sessionRepo,
		Plans:    planRepo,
		Provider: provider,
		Resolver: tips.NewResolver(tenantRepo),
		Logger:   logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
		Checkout: config.CheckoutConfig{
			MaxAmountMinor:  100000,
			DefaultCurrency: "usd",
			ProviderTimeout: time.Second,
		},
		Stripe: config.StripeConfig{
			SuccessURL:   "https://app.example/success",
			CancelURL:    "https://app.example/cancel",
			PortalReturn: "https://app.example/billing",
		},
	})
	require.NoError(t, err)

	return &intentFixture{
		tenantID:   tenantID,
		employeeID: employeeID,
		tenants:    tenantRepo,
		tips:       tipRepo,
		sessions:   sessionRepo,
		plans:      planRepo,
		provider:   provider,
		svc:        svc,
	}
}

func requireErrCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code())
}

func TestCreateIntentEmployeeTip(t *testing.T) {
	fx := newIntentFixture(t)

	result, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID:   fx.tenantID,
		Kind:       enums.CheckoutKindEmployeeTip,
		Amount:     1000,
		EmployeeID: &fx.employeeID,
		Memo:       "thanks!",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_test_123", result.CheckoutURL)
	assert.Equal(t, "cs_test_123", result.SessionID)
	require.NotEmpty(t, result.TipID)

	require.Len(t, fx.tips.created, 1)
	tip := fx.tips.created[0]
	assert.Equal(t, enums.TipStatusPending, tip.Status)
	assert.Equal(t, enums.RecipientTypeEmployee, tip.RecipientType)
	assert.Equal(t, "Maya", tip.RecipientName)
	assert.Equal(t, int64(80), tip.FeeApplied)
	require.NotNil(t, tip.Memo)
	assert.Equal(t, "thanks!", *tip.Memo)

	require.Len(t, fx.sessions.created, 1)
	row := fx.sessions.created[0]
	assert.Equal(t, "cs_test_123", row.ID)
	assert.Equal(t, enums.SessionStatusPending, row.Status)
	require.NotNil(t, row.TipID)
	assert.Equal(t, result.TipID, *row.TipID)

	params := fx.provider.sessionParams
	require.NotNil(t, params)
	assert.Equal(t, int64(80), *params.PaymentIntentData.ApplicationFeeAmount)
	assert.Equal(t, result.TipID, params.Metadata["tip_id"])
	assert.Equal(t, fx.tenantID.String(), params.Metadata["tenant_id"])
	assert.Equal(t, "Maya", params.Metadata["employee_name"])
	assert.Equal(t, "Tip for Maya", *params.LineItems[0].PriceData.ProductData.Name)
}

func TestCreateIntentStoreTipResolvesTenantName(t *testing.T) {
	fx := newIntentFixture(t)

	result, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindStoreTip,
		Amount:   500,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.TipID)

	require.Len(t, fx.tips.created, 1)
	tip := fx.tips.created[0]
	assert.Equal(t, enums.RecipientTypeStore, tip.RecipientType)
	assert.Equal(t, "Blue Door Cafe", tip.RecipientName)
	assert.Nil(t, tip.EmployeeID)
}

func TestCreateIntentPlainPaymentSkipsTipRow(t *testing.T) {
	fx := newIntentFixture(t)

	result, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindPayment,
		Amount:   2500,
	})
	require.NoError(t, err)
	assert.Empty(t, result.TipID)
	assert.Empty(t, fx.tips.created)
	require.Len(t, fx.sessions.created, 1)
	assert.Nil(t, fx.sessions.created[0].TipID)
}

func TestCreateIntentRejectsUnknownKind(t *testing.T) {
	fx := newIntentFixture(t)

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKind("gift_card"),
		Amount:   500,
	})
	requireErrCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateIntentEmployeeTipRequiresEmployeeID(t *testing.T) {
	fx := newIntentFixture(t)

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindEmployeeTip,
		Amount:   500,
	})
	requireErrCode(t, err, pkgerrors.CodeValidation)
	assert.Empty(t, fx.tips.created)
}

func TestCreateIntentRejectsAmountOverCeiling(t *testing.T) {
	fx := newIntentFixture(t)

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindStoreTip,
		Amount:   100001,
	})
	requireErrCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	fx := newIntentFixture(t)

	for _, amount := range []int64{0, -100} {
		_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
			TenantID: fx.tenantID,
			Kind:     enums.CheckoutKindStoreTip,
			Amount:   amount,
		})
		requireErrCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestCreateIntentRejectsTenantWithoutConnectedAccount(t *testing.T) {
	fx := newIntentFixture(t)
	fx.tenants.tenants[fx.tenantID].StripeAccountID = nil

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindStoreTip,
		Amount:   500,
	})
	requireErrCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateIntentRejectsSuspendedTenant(t *testing.T) {
	fx := newIntentFixture(t)
	fx.tenants.tenants[fx.tenantID].Status = enums.TenantStatusSuspended

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindStoreTip,
		Amount:   500,
	})
	requireErrCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateIntentUnknownTenant(t *testing.T) {
	fx := newIntentFixture(t)

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: uuid.New(),
		Kind:     enums.CheckoutKindStoreTip,
		Amount:   500,
	})
	requireErrCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateIntentProviderFailureLeavesPendingTip(t *testing.T) {
	fx := newIntentFixture(t)
	fx.provider.sessionErr = errors.New("provider timeout")

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindStoreTip,
		Amount:   500,
	})
	requireErrCode(t, err, pkgerrors.CodeDependency)

	// The pending row survives as a reconciliation trail.
	require.Len(t, fx.tips.created, 1)
	assert.Equal(t, enums.TipStatusPending, fx.tips.created[0].Status)
	assert.Empty(t, fx.sessions.created)
}

func TestCreateIntentSubscriptionAdmissionRule(t *testing.T) {
	fx := newIntentFixture(t)
	customerID := "cus_existing"
	fx.tenants.tenants[fx.tenantID].StripeCustomerID = &customerID
	fx.provider.subscriptions = []*stripe.Subscription{
		{ID: "sub_1", Status: stripe.SubscriptionStatusActive},
	}

	result, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindSubscription,
	})
	require.NoError(t, err)
	assert.True(t, result.AlreadySubscribed)
	assert.Equal(t, "https://portal.example/session", result.PortalURL)
	assert.Empty(t, result.CheckoutURL)
	assert.Empty(t, fx.sessions.created)
}

func TestCreateIntentSubscriptionIgnoresCanceledSubscriptions(t *testing.T) {
	fx := newIntentFixture(t)
	customerID := "cus_existing"
	fx.tenants.tenants[fx.tenantID].StripeCustomerID = &customerID
	fx.provider.subscriptions = []*stripe.Subscription{
		{ID: "sub_1", Status: stripe.SubscriptionStatusCanceled},
	}

	result, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindSubscription,
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadySubscribed)
	assert.Equal(t, "https://checkout.example/cs_test_123", result.CheckoutURL)

	require.Len(t, fx.sessions.created, 1)
	row := fx.sessions.created[0]
	assert.Equal(t, enums.CheckoutKindSubscription, row.Kind)
	assert.Equal(t, int64(2900), row.Amount)
	assert.Equal(t, "usd", row.Currency)
}

func TestCreateIntentSubscriptionCreatesCustomerOnFirstUse(t *testing.T) {
	fx := newIntentFixture(t)

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindSubscription,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fx.provider.customerCalls)
	require.Len(t, fx.tenants.updated, 1)
	require.NotNil(t, fx.tenants.updated[0].StripeCustomerID)
	assert.Equal(t, "cus_test_123", *fx.tenants.updated[0].StripeCustomerID)
}

func TestCreateIntentSubscriptionWithExplicitPlan(t *testing.T) {
	fx := newIntentFixture(t)
	planID := uuid.New()
	fx.plans.plans = map[uuid.UUID]*models.BillingPlan{
		planID: {
			ID:            planID,
			Name:          "Premium",
			StripePriceID: "price_premium",
			Amount:        decimal.NewFromFloat(59.00),
			Currency:      "usd",
		},
	}

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindSubscription,
		PlanID:   &planID,
	})
	require.NoError(t, err)

	params := fx.provider.sessionParams
	require.NotNil(t, params)
	assert.Equal(t, "price_premium", *params.LineItems[0].Price)
}

func TestCreateIntentSubscriptionUnknownPlan(t *testing.T) {
	fx := newIntentFixture(t)
	planID := uuid.New()
	fx.plans.plans = map[uuid.UUID]*models.BillingPlan{}

	_, err := fx.svc.CreateIntent(context.Background(), IntentInput{
		TenantID: fx.tenantID,
		Kind:     enums.CheckoutKindSubscription,
		PlanID:   &planID,
	})
	requireErrCode(t, err, pkgerrors.CodeNotFound)
}
