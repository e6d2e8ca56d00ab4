package billing

import (
	"context"
	"time"
)

// WebhookSource authenticates and decodes provider notifications
type WebhookSource interface {
	// Verify checks the signature header against the exact payload bytes
	Verify(payload []byte, signatureHeader string) error

	// Decode parses an authenticated payload into an Event
	Decode(payload []byte) (Event, error)
}

// PaymentIntent is the provider's view of a one-off payment
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	CustomerID   string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// Succeeded reports whether the payment completed
func (p *PaymentIntent) Succeeded() bool {
	return p.Status == "succeeded"
}

// PaymentIntentInput describes a payment to create
type PaymentIntentInput struct {
	CustomerID    string
	Amount        int64
	Currency      string
	Method        string
	Plan          string
	UserID        int64
	ReceiptEmail  string
	IdempotencyID string
}

// Subscription is the provider's view of a recurring plan
type Subscription struct {
	ID          string
	CustomerID  string
	Plan        string
	Status      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Created     time.Time
	CanceledAt  time.Time
}

// SubscribeInput describes a subscription to create
type SubscribeInput struct {
	CustomerID      string
	PriceID         string
	PaymentMethodID string
	UserID          int64
	Email           string
}

// Provider is the subset of the billing provider API this service uses
type Provider interface {
	CreateCustomer(ctx context.Context, userID int64, email string) (string, error)
	CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// Subscribe attaches the payment method, makes it the default and
	// creates the subscription.
	Subscribe(ctx context.Context, in SubscribeInput) (*Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*Subscription, error)
}
