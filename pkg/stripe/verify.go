package stripe

import (
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// ErrSignatureVerification means the payload matched none of the configured
// signing secrets.
var ErrSignatureVerification = errors.New("webhook signature verification failed")

// VerifyEvent checks the Stripe-Signature header against every configured
// secret in order and returns the parsed event from the first match. Running
// both a platform endpoint and a Connect endpoint against one route means two
// valid secrets exist at any time; rotation windows add more.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	secrets, err := c.WebhookSecrets()
	if err != nil {
		return stripe.Event{}, err
	}

	var lastErr error
	for _, secret := range secrets {
		event, err := webhook.ConstructEvent(payload, sigHeader, secret)
		if err == nil {
			return event, nil
		}
		lastErr = err
	}
	return stripe.Event{}, errors.Join(ErrSignatureVerification, lastErr)
}
