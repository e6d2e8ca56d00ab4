package providers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
)

// StripeWebhooks authenticates and decodes Stripe event notifications
type StripeWebhooks struct {
	secret    string
	tolerance time.Duration
}

// NewStripeWebhooks creates a webhook source for the given endpoint secret
func NewStripeWebhooks(secret string, tolerance time.Duration) *StripeWebhooks {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeWebhooks{secret: secret, tolerance: tolerance}
}

// Verify checks the Stripe-Signature header against the raw payload
func (w *StripeWebhooks) Verify(payload []byte, signatureHeader string) error {
	if w.secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	return webhook.ValidatePayloadWithTolerance(payload, signatureHeader, w.secret, w.tolerance)
}

// Decode maps a Stripe event onto the billing event variants
func (w *StripeWebhooks) Decode(payload []byte) (billing.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("event is missing id or type")
	}

	env := billing.Envelope{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch env.Type {
	case billing.KindSubscriptionCreated, billing.KindSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		return &billing.SubscriptionChanged{
			Envelope:       env,
			SubscriptionID: sub.ID,
			CustomerID:     customerID(sub.Customer),
			Plan:           planOf(&sub),
			Status:         string(sub.Status),
			PeriodStart:    unixOrZero(sub.CurrentPeriodStart),
			PeriodEnd:      unixOrZero(sub.CurrentPeriodEnd),
		}, nil

	case billing.KindSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		return &billing.SubscriptionDeleted{
			Envelope:       env,
			SubscriptionID: sub.ID,
			CustomerID:     customerID(sub.Customer),
			Plan:           planOf(&sub),
			PeriodStart:    unixOrZero(sub.CurrentPeriodStart),
			PeriodEnd:      unixOrZero(sub.CurrentPeriodEnd),
		}, nil

	case billing.KindInvoicePaid, billing.KindInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to parse invoice: %w", err)
		}
		subID := ""
		if inv.Subscription != nil {
			subID = inv.Subscription.ID
		}
		if env.Type == billing.KindInvoicePaid {
			return &billing.InvoicePaid{Envelope: env, InvoiceID: inv.ID, SubscriptionID: subID}, nil
		}
		return &billing.InvoicePaymentFailed{Envelope: env, InvoiceID: inv.ID, SubscriptionID: subID}, nil

	case billing.KindCustomerCreated:
		var cus stripe.Customer
		if err := json.Unmarshal(raw, &cus); err != nil {
			return nil, fmt.Errorf("failed to parse customer: %w", err)
		}
		return &billing.CustomerCreated{Envelope: env, CustomerID: cus.ID, Email: cus.Email}, nil
	}

	return &billing.Unrecognized{Envelope: env}, nil
}

// planOf names a subscription by its first price, preferring the nickname
func planOf(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return ""
	}
	price := sub.Items.Data[0].Price
	if price.Nickname != "" {
		return price.Nickname
	}
	return price.ID
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func unixOrZero(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
