package dto

import (
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
)

// CreatePaymentIntentRequest starts a pass purchase. Amount is in the
// currency's smallest unit.
type CreatePaymentIntentRequest struct {
	Plan     string `json:"plan" validate:"required,oneof=oneday onemonth hourly"`
	Method   string `json:"method" validate:"required,oneof=card paypal"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// PaymentIntentResponse carries what the client needs to confirm payment
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// VerifyPaymentRequest claims the pass bought by a payment intent
type VerifyPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	Plan            string `json:"plan" validate:"required,oneof=oneday onemonth hourly"`
	Hours           int64  `json:"hours,omitempty" validate:"omitempty,gt=0,lte=720"`
}

// SubscribeRequest starts a recurring subscription. Plan is the price id.
type SubscribeRequest struct {
	Plan            string `json:"plan" validate:"required"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

// UpdateRemainingRequest reports seconds consumed from a time-boxed pass
type UpdateRemainingRequest struct {
	Seconds int64 `json:"seconds" validate:"required,gt=0"`
}

// CancelRequest names the subscription to cancel
type CancelRequest struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
}

// CustomerResponse carries the billing customer id
type CustomerResponse struct {
	CustomerID string `json:"customerId"`
}

// SubscriptionDTO represents a provider subscription
type SubscriptionDTO struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Plan             string     `json:"plan"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// PassDTO represents a granted pass
type PassDTO struct {
	ID                   int64      `json:"id"`
	Plan                 string     `json:"plan"`
	Status               string     `json:"status"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	RemainingTimeSeconds *int64     `json:"remaining_time_seconds,omitempty"`
}

// WebhookAck acknowledges a billing notification
type WebhookAck struct {
	Received bool `json:"received"`
}

// ToSubscriptionDTO converts a provider subscription
func ToSubscriptionDTO(s *billing.Subscription) *SubscriptionDTO {
	out := &SubscriptionDTO{ID: s.ID, Status: s.Status, Plan: s.Plan}
	if !s.PeriodEnd.IsZero() {
		end := s.PeriodEnd
		out.CurrentPeriodEnd = &end
	}
	return out
}

// ToPassDTO converts a ledger record
func ToPassDTO(r *entitlement.Record) *PassDTO {
	return &PassDTO{
		ID:                   r.ID,
		Plan:                 r.Plan,
		Status:               string(r.Status),
		EndDate:              r.EndDate,
		RemainingTimeSeconds: r.RemainingSeconds,
	}
}
