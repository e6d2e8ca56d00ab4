package providers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/metrics"
)

const providerName = "stripe"

// StripeProvider implements billing.Provider with the Stripe API. Calls are
// made once; failures surface as UpstreamError for the client to retry.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider creates a provider using the default Stripe backends
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

// NewStripeProviderWithBackends creates a provider against custom backends
func NewStripeProviderWithBackends(secretKey string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, backends)}
}

// CreateCustomer creates a customer tagged with the local user id
func (p *StripeProvider) CreateCustomer(ctx context.Context, userID int64, email string) (string, error) {
	start := time.Now()
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))

	cus, err := p.api.Customers.New(params)
	metrics.RecordProviderCall("customer.create", err, time.Since(start))
	if err != nil {
		return "", upstream(err, "Customer")
	}
	return cus.ID, nil
}

// CreatePaymentIntent creates a payment intent for a pass purchase
func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, in billing.PaymentIntentInput) (*billing.PaymentIntent, error) {
	start := time.Now()
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(in.Amount),
		Currency:           stripe.String(in.Currency),
		Customer:           stripe.String(in.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{in.Method}),
	}
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	params.Context = ctx
	params.AddMetadata("plan", in.Plan)
	params.AddMetadata("user_id", strconv.FormatInt(in.UserID, 10))
	if in.IdempotencyID != "" {
		params.SetIdempotencyKey(in.IdempotencyID)
	}

	pi, err := p.api.PaymentIntents.New(params)
	metrics.RecordProviderCall("payment_intent.create", err, time.Since(start))
	if err != nil {
		return nil, upstream(err, "Payment intent")
	}
	return toPaymentIntent(pi), nil
}

// GetPaymentIntent retrieves a payment intent by id
func (p *StripeProvider) GetPaymentIntent(ctx context.Context, id string) (*billing.PaymentIntent, error) {
	start := time.Now()
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	metrics.RecordProviderCall("payment_intent.get", err, time.Since(start))
	if err != nil {
		return nil, upstream(err, "Payment intent")
	}
	return toPaymentIntent(pi), nil
}

// Subscribe attaches the payment method to the customer, makes it the
// invoice default and creates the subscription.
func (p *StripeProvider) Subscribe(ctx context.Context, in billing.SubscribeInput) (*billing.Subscription, error) {
	start := time.Now()

	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(in.CustomerID)}
	attach.Context = ctx
	if _, err := p.api.PaymentMethods.Attach(in.PaymentMethodID, attach); err != nil {
		metrics.RecordProviderCall("subscription.create", err, time.Since(start))
		return nil, upstream(err, "Payment method")
	}

	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(in.PaymentMethodID),
		},
	}
	update.Context = ctx
	if _, err := p.api.Customers.Update(in.CustomerID, update); err != nil {
		metrics.RecordProviderCall("subscription.create", err, time.Since(start))
		return nil, upstream(err, "Customer")
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(in.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(in.PriceID)},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(in.UserID, 10))
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := p.api.Subscriptions.New(params)
	metrics.RecordProviderCall("subscription.create", err, time.Since(start))
	if err != nil {
		return nil, upstream(err, "Subscription")
	}
	return toSubscription(sub), nil
}

// CancelSubscription cancels a subscription immediately
func (p *StripeProvider) CancelSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	start := time.Now()
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Cancel(id, params)
	metrics.RecordProviderCall("subscription.cancel", err, time.Since(start))
	if err != nil {
		return nil, upstream(err, "Subscription")
	}
	return toSubscription(sub), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *billing.PaymentIntent {
	return &billing.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		CustomerID:   customerID(pi.Customer),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func toSubscription(sub *stripe.Subscription) *billing.Subscription {
	return &billing.Subscription{
		ID:          sub.ID,
		CustomerID:  customerID(sub.Customer),
		Plan:        planOf(sub),
		Status:      string(sub.Status),
		PeriodStart: unixOrZero(sub.CurrentPeriodStart),
		PeriodEnd:   unixOrZero(sub.CurrentPeriodEnd),
		Created:     unixOrZero(sub.Created),
		CanceledAt:  unixOrZero(sub.CanceledAt),
	}
}

// upstream maps Stripe failures. Missing objects become NotFound so a bad
// id from the client is not reported as a provider outage.
func upstream(err error, resource string) error {
	var stripeErr *stripe.Error
	if stderrors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return errors.NotFound(resource)
		}
		if stripeErr.Type == stripe.ErrorTypeCard {
			return errors.BadRequest(stripeErr.Msg)
		}
	}
	return errors.UpstreamError(providerName, err)
}
