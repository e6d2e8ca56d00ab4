package billing

import (
	"context"

	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
)

// Outcome describes what the reconciler did with an authenticated event
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeStale   Outcome = "stale"
	OutcomeIgnored Outcome = "ignored"
)

// Reconciler applies provider notifications to the entitlement ledger
type Reconciler interface {
	// HandleWebhook authenticates the raw payload, then applies it. Only an
	// authentication failure returns an UntrustedEvent error; skipped
	// mutations are acknowledged.
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (Event, Outcome, error)
}

// VerifyPaymentInput identifies a completed one-off payment
type VerifyPaymentInput struct {
	PaymentIntentID string
	Plan            string
	Hours           int64
}

// PaymentService covers user-initiated billing operations
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, userID int64, email string, in PaymentIntentInput) (*PaymentIntent, error)
	VerifyPayment(ctx context.Context, userID int64, in VerifyPaymentInput) (*entitlement.Record, error)
	Subscribe(ctx context.Context, userID int64, priceID, paymentMethodID string) (*Subscription, error)
	UpdateRemaining(ctx context.Context, userID int64, seconds int64) (*entitlement.Record, error)
	Cancel(ctx context.Context, userID int64, subscriptionID string) (*Subscription, error)
	SyncCustomer(ctx context.Context, userID int64) (string, error)
}
