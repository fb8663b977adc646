package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tipflow-backend/pkg/config"
)

func buildSignedEvent(t *testing.T, secret string) ([]byte, string) {
	t.Helper()

	session := &stripe.CheckoutSession{
		ID:          "cs_" + uuid.NewString(),
		AmountTotal: 500,
		Currency:    stripe.CurrencyUSD,
	}
	rawSession, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: rawSession,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, buildStripeSignatureHeader(payload, secret, time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newVerifyClient(secrets ...string) *Client {
	return NewClient(config.StripeConfig{
		APIKey:         "sk_test_123",
		WebhookSecrets: secrets,
	})
}

func TestVerifyEvent_FirstSecretMatches(t *testing.T) {
	client := newVerifyClient("whsec_primary", "whsec_secondary")
	payload, header := buildSignedEvent(t, "whsec_primary")

	event, err := client.VerifyEvent(payload, header)
	if err != nil {
		t.Fatalf("verify with primary secret: %v", err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		t.Fatalf("unexpected event type %s", event.Type)
	}
}

func TestVerifyEvent_FallsBackToLaterSecret(t *testing.T) {
	client := newVerifyClient("whsec_primary", "whsec_secondary")
	payload, header := buildSignedEvent(t, "whsec_secondary")

	if _, err := client.VerifyEvent(payload, header); err != nil {
		t.Fatalf("verify with secondary secret: %v", err)
	}
}

func TestVerifyEvent_NoSecretMatches(t *testing.T) {
	client := newVerifyClient("whsec_primary", "whsec_secondary")
	payload, header := buildSignedEvent(t, "whsec_rotated_out")

	_, err := client.VerifyEvent(payload, header)
	if err == nil {
		t.Fatal("expected verification failure")
	}
	if !errors.Is(err, ErrSignatureVerification) {
		t.Fatalf("expected ErrSignatureVerification, got %v", err)
	}
}

func TestVerifyEvent_NoSecretsConfigured(t *testing.T) {
	client := newVerifyClient()
	payload, header := buildSignedEvent(t, "whsec_any")

	if _, err := client.VerifyEvent(payload, header); err == nil {
		t.Fatal("expected error when no secrets configured")
	}
}
