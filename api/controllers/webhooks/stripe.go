package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/api/responses"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Stripe rejects larger payloads itself; anything bigger is not a real event.
const maxWebhookBodyBytes = 1 << 16

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Outcome, error)
}

type stripeWebhookGuard interface {
	Processed(ctx context.Context, eventID string) (stripewebhook.Outcome, bool, error)
	MarkProcessed(ctx context.Context, eventID string, outcome stripewebhook.Outcome) error
}

type stripeClient interface {
	SigningSecret() string
}

type WebhookOptions struct {
	Tolerance time.Duration
	// Legacy answers with {"received": true} instead of the data envelope.
	Legacy bool
}

// StripeWebhook verifies and reconciles checkout completion events. The guard
// is optional; without it every delivery is processed.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger, opts WebhookOptions) http.HandlerFunc {
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	ack := func(w http.ResponseWriter, outcome stripewebhook.Outcome) {
		if opts.Legacy {
			responses.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		responses.WriteSuccess(w, map[string]any{"received": true, "outcome": outcome})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			Tolerance:                tolerance,
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithEvent(ctx, event.ID, string(event.Type))
		}

		if guard != nil {
			prior, seen, err := guard.Processed(ctx, event.ID)
			if err != nil {
				// The merge is idempotent, so a guard outage only costs a duplicate write.
				if logg != nil {
					logg.Warn(ctx, "webhook dedupe unavailable: "+err.Error())
				}
			} else if seen {
				ack(w, prior)
				return
			}
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Recorded only once the reconcile transaction has committed.
		if guard != nil {
			if markErr := guard.MarkProcessed(ctx, event.ID, outcome); markErr != nil && logg != nil {
				logg.Warn(ctx, "webhook dedupe record failed: "+markErr.Error())
			}
		}

		ack(w, outcome)
	}
}
