package billing

import "time"

// Event kinds as delivered by the provider
const (
	KindSubscriptionCreated  = "customer.subscription.created"
	KindSubscriptionUpdated  = "customer.subscription.updated"
	KindSubscriptionDeleted  = "customer.subscription.deleted"
	KindInvoicePaid          = "invoice.payment_succeeded"
	KindInvoicePaymentFailed = "invoice.payment_failed"
	KindCustomerCreated      = "customer.created"
)

// Event is an authenticated provider notification. The set of
// implementations is closed: SubscriptionChanged, SubscriptionDeleted,
// InvoicePaid, InvoicePaymentFailed, CustomerCreated and Unrecognized.
type Event interface {
	EventID() string
	Kind() string
	// OccurredAt is the provider's creation time for the event. It is the
	// ordering key for ledger writes.
	OccurredAt() time.Time

	sealed()
}

// Envelope holds the fields common to every event
type Envelope struct {
	ID      string
	Type    string
	Created time.Time
}

func (e Envelope) EventID() string       { return e.ID }
func (e Envelope) Kind() string          { return e.Type }
func (e Envelope) OccurredAt() time.Time { return e.Created }
func (Envelope) sealed()                 {}

// SubscriptionChanged carries a full subscription snapshot
type SubscriptionChanged struct {
	Envelope
	SubscriptionID string
	CustomerID     string
	Plan           string
	Status         string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// SubscriptionDeleted reports a subscription that ended. The provider sends
// the final snapshot, so a deletion seen before its creation can still be
// recorded.
type SubscriptionDeleted struct {
	Envelope
	SubscriptionID string
	CustomerID     string
	Plan           string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// InvoicePaid reports a successful invoice payment
type InvoicePaid struct {
	Envelope
	InvoiceID      string
	SubscriptionID string
}

// InvoicePaymentFailed reports a failed invoice payment
type InvoicePaymentFailed struct {
	Envelope
	InvoiceID      string
	SubscriptionID string
}

// CustomerCreated is informational only
type CustomerCreated struct {
	Envelope
	CustomerID string
	Email      string
}

// Unrecognized is any kind this service does not act on
type Unrecognized struct {
	Envelope
}
