package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tipflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/metrics"
)

// maxPayloadBytes caps the webhook body read. Provider events are a few KB;
// anything larger is not a legitimate delivery.
const maxPayloadBytes = 1 << 16

type StripeWebhookService interface {
	Process(ctx context.Context, event *stripe.Event) error
}

// EventVerifier checks a delivery signature and decodes the event.
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// StripeWebhook receives provider event deliveries. Verification failures are
// terminal 4xx responses; processing failures return 5xx so the provider
// retries with backoff. Idempotency lives in the processor's ledger, so a
// retried delivery of a handled event is a cheap 200.
func StripeWebhook(svc StripeWebhookService, verifier EventVerifier, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event verifier unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			webhookMetrics.IncRejected()
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := verifier.VerifyEvent(payload, sigHeader)
		if err != nil {
			webhookMetrics.IncRejected()
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature"))
			return
		}

		if err := svc.Process(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
