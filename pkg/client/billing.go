package client

import "context"

// BillingService handles purchase and subscription calls
type BillingService struct {
	client *Client
}

// CreatePaymentIntentRequest starts a pass purchase
type CreatePaymentIntentRequest struct {
	Plan     string `json:"plan"`   // oneday, onemonth or hourly
	Method   string `json:"method"` // card or paypal
	Amount   int64  `json:"amount"` // smallest currency unit
	Currency string `json:"currency,omitempty"`
}

// VerifyPaymentRequest claims the pass bought by a payment intent
type VerifyPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Plan            string `json:"plan"`
	Hours           int64  `json:"hours,omitempty"`
}

// CreatePaymentIntent starts a one-off payment
func (s *BillingService) CreatePaymentIntent(ctx context.Context, req CreatePaymentIntentRequest) (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := s.client.doRequest(ctx, "POST", "/api/v1/payment/create-payment-intent", req, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

// VerifyPayment grants the pass for a completed payment. Safe to retry.
func (s *BillingService) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*Pass, error) {
	var pass Pass
	if err := s.client.doRequest(ctx, "POST", "/api/v1/payment/verify-payment", req, &pass); err != nil {
		return nil, err
	}
	return &pass, nil
}

// Subscribe starts a recurring subscription for a price
func (s *BillingService) Subscribe(ctx context.Context, priceID, paymentMethodID string) (*Subscription, error) {
	var sub Subscription
	body := map[string]string{"plan": priceID, "paymentMethodId": paymentMethodID}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/payment/subscribe", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateRemaining reports seconds used from a time-boxed pass and returns
// the resulting entitlement
func (s *BillingService) UpdateRemaining(ctx context.Context, seconds int64) (*Entitlement, error) {
	var ent Entitlement
	if err := s.client.doRequest(ctx, "POST", "/api/v1/payment/update-remaining", map[string]int64{"seconds": seconds}, &ent); err != nil {
		return nil, err
	}
	return &ent, nil
}

// Cancel cancels a subscription
func (s *BillingService) Cancel(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := s.client.doRequest(ctx, "POST", "/api/v1/payment/cancel", map[string]string{"subscriptionId": subscriptionID}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SyncCustomer ensures the caller has a billing customer and returns its id
func (s *BillingService) SyncCustomer(ctx context.Context) (string, error) {
	var resp struct {
		CustomerID string `json:"customerId"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/payment/sync-customer", nil, &resp); err != nil {
		return "", err
	}
	return resp.CustomerID, nil
}
