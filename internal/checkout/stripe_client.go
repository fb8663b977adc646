package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/angelmondragon/tipflow-backend/pkg/stripe"
)

// ProviderClient exposes the subset of provider operations required by the
// intent builder.
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	ListSubscriptions(ctx context.Context, params *stripe.SubscriptionListParams) ([]*stripe.Subscription, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
}

type stripeClientWrapper struct {
	client *pkgstripe.Client
}

// NewProviderClient wraps the Stripe client so the intent builder can be
// tested against a stub.
func NewProviderClient(client *pkgstripe.Client) ProviderClient {
	if client == nil {
		return nil
	}
	return &stripeClientWrapper{client: client}
}

func (w *stripeClientWrapper) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if err := w.client.Init(); err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}

func (w *stripeClientWrapper) CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if err := w.client.Init(); err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	return portalsession.New(params)
}

func (w *stripeClientWrapper) ListSubscriptions(ctx context.Context, params *stripe.SubscriptionListParams) ([]*stripe.Subscription, error) {
	if err := w.client.Init(); err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	var subs []*stripe.Subscription
	iter := subscription.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (w *stripeClientWrapper) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if err := w.client.Init(); err != nil {
		return nil, err
	}
	if params != nil {
		params.Context = ctx
	}
	return customer.New(params)
}
