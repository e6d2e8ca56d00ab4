package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
	"github.com/pratik-mahalle/paygate/internal/pkg/validator"
)

// PaymentHandler handles purchase and subscription requests
type PaymentHandler struct {
	payments  billing.PaymentService
	guard     entitlement.Guard
	logger    *logger.Logger
	validator *validator.Validator
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	payments billing.PaymentService,
	guard entitlement.Guard,
	log *logger.Logger,
	val *validator.Validator,
) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		guard:     guard,
		logger:    log,
		validator: val,
	}
}

// CreatePaymentIntent starts a one-off pass purchase
// @Summary Create payment intent
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePaymentIntentRequest true "Pass to buy"
// @Success 200 {object} dto.PaymentIntentResponse "Client secret"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 502 {object} utils.ErrorResponse "Billing provider error"
// @Router /payment/create-payment-intent [post]
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.CreatePaymentIntentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	email, _ := middleware.GetUserEmail(r)
	pi, err := h.payments.CreatePaymentIntent(r.Context(), userID, email, billing.PaymentIntentInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Method:   req.Method,
		Plan:     req.Plan,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.PaymentIntentResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
	})
}

// VerifyPayment grants the pass bought by a completed payment. Repeating
// the call returns the pass granted the first time.
// @Summary Verify payment
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.VerifyPaymentRequest true "Completed payment"
// @Success 200 {object} dto.PassDTO "Granted pass"
// @Failure 400 {object} utils.ErrorResponse "Payment not completed or invalid plan"
// @Failure 404 {object} utils.ErrorResponse "Payment intent not found"
// @Router /payment/verify-payment [post]
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.VerifyPaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	rec, err := h.payments.VerifyPayment(r.Context(), userID, billing.VerifyPaymentInput{
		PaymentIntentID: req.PaymentIntentID,
		Plan:            req.Plan,
		Hours:           req.Hours,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ToPassDTO(rec))
}

// Subscribe starts a recurring subscription
// @Summary Subscribe
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubscribeRequest true "Price and payment method"
// @Success 201 {object} dto.SubscriptionDTO "Subscription"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or card declined"
// @Failure 502 {object} utils.ErrorResponse "Billing provider error"
// @Router /payment/subscribe [post]
func (h *PaymentHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.SubscribeRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	sub, err := h.payments.Subscribe(r.Context(), userID, req.Plan, req.PaymentMethodID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	middleware.AddLogField(w, "subscription_id", sub.ID)
	utils.WriteSuccess(w, http.StatusCreated, dto.ToSubscriptionDTO(sub))
}

// UpdateRemaining consumes time from the caller's time-boxed pass and
// returns the resulting access state.
// @Summary Consume pass time
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateRemainingRequest true "Seconds used"
// @Success 200 {object} dto.EntitlementResponse "Entitlement after the update"
// @Failure 404 {object} utils.ErrorResponse "No active time-boxed pass"
// @Router /payment/update-remaining [post]
func (h *PaymentHandler) UpdateRemaining(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.UpdateRemainingRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if _, err := h.payments.UpdateRemaining(r.Context(), userID, req.Seconds); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	verdict, err := h.guard.Evaluate(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ToEntitlementResponse(verdict))
}

// Cancel cancels one of the caller's subscriptions
// @Summary Cancel subscription
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CancelRequest true "Subscription to cancel"
// @Success 200 {object} dto.SubscriptionDTO "Canceled subscription"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /payment/cancel [post]
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	sub, err := h.payments.Cancel(r.Context(), userID, req.SubscriptionID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ToSubscriptionDTO(sub))
}

// SyncCustomer ensures the caller has a billing customer
// @Summary Sync billing customer
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CustomerResponse "Customer"
// @Failure 502 {object} utils.ErrorResponse "Billing provider error"
// @Router /payment/sync-customer [post]
func (h *PaymentHandler) SyncCustomer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	customerID, err := h.payments.SyncCustomer(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.CustomerResponse{CustomerID: customerID})
}
