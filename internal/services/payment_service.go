package services

import (
	"context"
	"strconv"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
)

var errBillingDisabled = errors.NotImplemented("Billing is not configured")

// PaymentService implements billing.PaymentService
type PaymentService struct {
	users    user.Service
	provider billing.Provider
	ledger   entitlement.Ledger
	currency string
	now      func() time.Time
	logger   *logger.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(users user.Service, provider billing.Provider, ledger entitlement.Ledger, currency string, log *logger.Logger) *PaymentService {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		users:    users,
		provider: provider,
		ledger:   ledger,
		currency: currency,
		now:      time.Now,
		logger:   log,
	}
}

// WithClock replaces the time source used for pass windows
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// CreatePaymentIntent starts a one-off payment for a pass
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID int64, email string, in billing.PaymentIntentInput) (*billing.PaymentIntent, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	customerID, err := s.users.GetOrCreateCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.CustomerID = customerID
	in.UserID = userID
	in.ReceiptEmail = email
	if in.Currency == "" {
		in.Currency = s.currency
	}

	pi, err := s.provider.CreatePaymentIntent(ctx, in)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to create payment intent")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":           userID,
		"payment_intent_id": pi.ID,
		"plan":              in.Plan,
		"amount":            in.Amount,
	}).Info("Payment intent created")

	return pi, nil
}

// VerifyPayment grants the pass bought by a succeeded payment intent. The
// pass is keyed by the intent id, so verifying twice grants it once.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID int64, in billing.VerifyPaymentInput) (*entitlement.Record, error) {
	window, isWindow := entitlement.PassWindow(in.Plan)
	if !isWindow && in.Plan != entitlement.PlanHourly {
		return nil, errors.BadRequest("Invalid plan")
	}
	if in.Plan == entitlement.PlanHourly && in.Hours <= 0 {
		return nil, errors.BadRequest("Hours must be positive for the hourly plan")
	}

	if s.provider == nil {
		return nil, errBillingDisabled
	}

	pi, err := s.provider.GetPaymentIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if !pi.Succeeded() {
		return nil, errors.BadRequest("Payment not completed")
	}
	if owner, ok := pi.Metadata["user_id"]; ok && owner != strconv.FormatInt(userID, 10) {
		s.logger.WithFields(map[string]interface{}{
			"user_id":           userID,
			"payment_intent_id": pi.ID,
		}).Warn("Payment intent belongs to another user")
		return nil, errors.NotFound("Payment intent")
	}
	// The intent records the plan it was priced for
	if bought := pi.Metadata["plan"]; bought != "" && bought != in.Plan {
		s.logger.WithFields(map[string]interface{}{
			"user_id":           userID,
			"payment_intent_id": pi.ID,
			"plan":              in.Plan,
			"paid_plan":         bought,
		}).Warn("Payment intent was bought for a different plan")
		return nil, errors.BadRequest("Payment intent was not bought for this plan")
	}

	externalID := pi.ID
	var rec *entitlement.Record
	created := true
	if isWindow {
		start := s.now()
		end := start.Add(window)
		rec, created, err = s.ledger.InsertIfAbsent(ctx, &entitlement.Record{
			UserID:     userID,
			ExternalID: &externalID,
			Plan:       in.Plan,
			Kind:       entitlement.KindWindow,
			Status:     entitlement.StatusActive,
			StartDate:  &start,
			EndDate:    &end,
			UpdatedAt:  start,
		})
	} else {
		rec, err = s.ledger.InsertTimeBoxed(ctx, userID, in.Plan, in.Hours*3600, &externalID)
	}
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to grant pass")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":           userID,
		"payment_intent_id": pi.ID,
		"plan":              in.Plan,
		"created":           created,
	}).Info("Payment verified")

	return rec, nil
}

// Subscribe creates a recurring subscription and records it in the ledger
// without waiting for the provider's notification.
func (s *PaymentService) Subscribe(ctx context.Context, userID int64, priceID, paymentMethodID string) (*billing.Subscription, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	customerID, err := s.users.GetOrCreateCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.provider.Subscribe(ctx, billing.SubscribeInput{
		CustomerID:      customerID,
		PriceID:         priceID,
		PaymentMethodID: paymentMethodID,
		UserID:          userID,
		Email:           u.Email,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to create subscription")
		return nil, err
	}

	updatedAt := sub.Created
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	if _, err := s.ledger.UpsertByExternalID(ctx, &entitlement.Record{
		UserID:     userID,
		ExternalID: &sub.ID,
		Plan:       sub.Plan,
		Kind:       entitlement.KindWindow,
		Status:     entitlement.Status(sub.Status),
		StartDate:  timeOrNil(sub.PeriodStart),
		EndDate:    timeOrNil(sub.PeriodEnd),
		UpdatedAt:  updatedAt,
	}); err != nil {
		// The provider's subscription notification will still record it.
		s.logger.ErrorWithErr(err, "Failed to record subscription")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"subscription_id": sub.ID,
		"plan":            sub.Plan,
	}).Info("Subscription created")

	return sub, nil
}

// UpdateRemaining consumes seconds from the user's time-boxed pass
func (s *PaymentService) UpdateRemaining(ctx context.Context, userID int64, seconds int64) (*entitlement.Record, error) {
	return s.ledger.DecrementRemaining(ctx, userID, seconds)
}

// Cancel cancels one of the user's subscriptions at the provider and marks
// it canceled locally.
func (s *PaymentService) Cancel(ctx context.Context, userID int64, subscriptionID string) (*billing.Subscription, error) {
	rec, err := s.ledger.GetByExternalID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFound("Subscription")
		}
		return nil, err
	}
	if rec.UserID != userID || rec.Kind != entitlement.KindWindow {
		return nil, errors.NotFound("Subscription")
	}

	if s.provider == nil {
		return nil, errBillingDisabled
	}

	sub, err := s.provider.CancelSubscription(ctx, subscriptionID)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to cancel subscription")
		return nil, err
	}

	canceledAt := sub.CanceledAt
	if canceledAt.IsZero() {
		canceledAt = s.now()
	}
	if _, err := s.ledger.UpdateStatusByExternalID(ctx, subscriptionID, entitlement.StatusCanceled, canceledAt); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"subscription_id": subscriptionID,
	}).Info("Subscription canceled")

	return sub, nil
}

// SyncCustomer returns the user's billing customer, creating it if needed
func (s *PaymentService) SyncCustomer(ctx context.Context, userID int64) (string, error) {
	return s.users.GetOrCreateCustomerID(ctx, userID)
}
