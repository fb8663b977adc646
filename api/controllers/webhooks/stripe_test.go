package webhooks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
)

type fakeStripeWebhookService struct {
	calls int
	err   error
}

func (f *fakeStripeWebhookService) Process(ctx context.Context, event *stripe.Event) error {
	f.calls++
	return f.err
}

type fakeVerifier struct {
	event stripe.Event
	err   error
}

func (f *fakeVerifier) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if f.err != nil {
		return stripe.Event{}, f.err
	}
	return f.event, nil
}

func postWebhook(handler http.HandlerFunc, sigHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_Success(t *testing.T) {
	service := &fakeStripeWebhookService{}
	verifier := &fakeVerifier{event: stripe.Event{ID: "evt_1", Type: stripe.EventTypeCheckoutSessionCompleted}}
	handler := StripeWebhook(service, verifier, nil, nil)

	rec := postWebhook(handler, "t=1,v1=sig")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeVerifier{}, nil, nil)

	rec := postWebhook(handler, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("expected service not called, got %d", service.calls)
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	service := &fakeStripeWebhookService{}
	verifier := &fakeVerifier{err: errors.New("no matching secret")}
	handler := StripeWebhook(service, verifier, nil, nil)

	rec := postWebhook(handler, "t=1,v1=bad")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("expected service not called, got %d", service.calls)
	}
}

func TestStripeWebhook_ProcessingFailureIsRetryable(t *testing.T) {
	service := &fakeStripeWebhookService{
		err: pkgerrors.New(pkgerrors.CodeInternal, "tip upsert failed"),
	}
	verifier := &fakeVerifier{event: stripe.Event{ID: "evt_2", Type: stripe.EventTypeCheckoutSessionCompleted}}
	handler := StripeWebhook(service, verifier, nil, nil)

	rec := postWebhook(handler, "t=1,v1=sig")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the provider retries, got %d", rec.Code)
	}
}
