package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

func TestPaymentHandler_HourlyPassLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	buyer := testutil.CreateUser(t, f.db, "hourly@example.com")

	rr := httptest.NewRecorder()
	f.payment.CreatePaymentIntent(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/create-payment-intent", dto.CreatePaymentIntentRequest{
		Plan:   "hourly",
		Method: "card",
		Amount: 500,
	}), buyer.ID, buyer.Email))
	if rr.Code != http.StatusOK {
		t.Fatalf("create intent returned %d: %s", rr.Code, rr.Body.String())
	}
	var intent dto.PaymentIntentResponse
	decodeData(t, rr, &intent)
	if intent.ClientSecret == "" || intent.PaymentIntentID == "" {
		t.Fatalf("incomplete intent response: %+v", intent)
	}

	verify := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		f.payment.VerifyPayment(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/verify-payment", dto.VerifyPaymentRequest{
			PaymentIntentID: intent.PaymentIntentID,
			Plan:            "hourly",
			Hours:           1,
		}), buyer.ID, buyer.Email))
		return rr
	}

	if rr := verify(); rr.Code != http.StatusBadRequest {
		t.Fatalf("verify before payment returned %d, want 400", rr.Code)
	}

	f.provider.Succeed(intent.PaymentIntentID)

	rr = verify()
	if rr.Code != http.StatusOK {
		t.Fatalf("verify returned %d: %s", rr.Code, rr.Body.String())
	}
	var pass dto.PassDTO
	decodeData(t, rr, &pass)
	if pass.RemainingTimeSeconds == nil || *pass.RemainingTimeSeconds != 3600 {
		t.Fatalf("expected 3600 seconds, got %v", pass.RemainingTimeSeconds)
	}

	rr = verify()
	var again dto.PassDTO
	decodeData(t, rr, &again)
	if again.ID != pass.ID {
		t.Errorf("repeated verify granted a new pass: %d != %d", again.ID, pass.ID)
	}

	rr = httptest.NewRecorder()
	f.payment.UpdateRemaining(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/update-remaining", dto.UpdateRemainingRequest{
		Seconds: 600,
	}), buyer.ID, buyer.Email))
	if rr.Code != http.StatusOK {
		t.Fatalf("update remaining returned %d: %s", rr.Code, rr.Body.String())
	}
	var state dto.EntitlementResponse
	decodeData(t, rr, &state)
	if state.Status != "active" || state.RemainingTimeSeconds == nil || *state.RemainingTimeSeconds != 3000 {
		t.Errorf("unexpected entitlement after consumption: %+v", state)
	}
}

func TestPaymentHandler_VerifyRejectsOtherUsersIntent(t *testing.T) {
	f := newAPIFixture(t)
	owner := testutil.CreateUser(t, f.db, "owner@example.com")
	thief := testutil.CreateUser(t, f.db, "thief@example.com")

	rr := httptest.NewRecorder()
	f.payment.CreatePaymentIntent(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/create-payment-intent", dto.CreatePaymentIntentRequest{
		Plan:   "oneday",
		Method: "card",
		Amount: 200,
	}), owner.ID, owner.Email))
	var intent dto.PaymentIntentResponse
	decodeData(t, rr, &intent)
	f.provider.Succeed(intent.PaymentIntentID)

	rr = httptest.NewRecorder()
	f.payment.VerifyPayment(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/verify-payment", dto.VerifyPaymentRequest{
		PaymentIntentID: intent.PaymentIntentID,
		Plan:            "oneday",
	}), thief.ID, thief.Email))
	if rr.Code != http.StatusNotFound {
		t.Errorf("verify by another user returned %d, want 404", rr.Code)
	}
}

func TestPaymentHandler_SubscribeAndCancel(t *testing.T) {
	f := newAPIFixture(t)
	subscriber := testutil.CreateUser(t, f.db, "monthly@example.com")

	rr := httptest.NewRecorder()
	f.payment.Subscribe(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/subscribe", dto.SubscribeRequest{
		Plan:            "price_monthly",
		PaymentMethodID: "pm_card_visa",
	}), subscriber.ID, subscriber.Email))
	if rr.Code != http.StatusCreated {
		t.Fatalf("subscribe returned %d: %s", rr.Code, rr.Body.String())
	}
	var sub dto.SubscriptionDTO
	decodeData(t, rr, &sub)

	guarded := middleware.RequireEntitlement(f.guard)(http.HandlerFunc(Premium))
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/premium", nil), subscriber.ID, subscriber.Email))
	if rr.Code != http.StatusOK {
		t.Fatalf("premium with subscription returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	f.payment.Cancel(rr, asUser(jsonRequest(t, http.MethodPost, "/api/v1/payment/cancel", dto.CancelRequest{
		SubscriptionID: sub.ID,
	}), subscriber.ID, subscriber.Email))
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/premium", nil), subscriber.ID, subscriber.Email))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("premium after cancel returned %d, want 401", rr.Code)
	}
}

func TestPaymentHandler_SyncCustomer(t *testing.T) {
	f := newAPIFixture(t)
	u := testutil.CreateUser(t, f.db, "sync@example.com")

	var first, second dto.CustomerResponse
	for _, out := range []*dto.CustomerResponse{&first, &second} {
		rr := httptest.NewRecorder()
		f.payment.SyncCustomer(rr, asUser(httptest.NewRequest(http.MethodPost, "/api/v1/payment/sync-customer", nil), u.ID, u.Email))
		if rr.Code != http.StatusOK {
			t.Fatalf("sync returned %d: %s", rr.Code, rr.Body.String())
		}
		decodeData(t, rr, out)
	}

	if first.CustomerID == "" || first.CustomerID != second.CustomerID {
		t.Errorf("customer ids differ: %q vs %q", first.CustomerID, second.CustomerID)
	}
	if f.provider.CustomerCalls != 1 {
		t.Errorf("provider called %d times, want 1", f.provider.CustomerCalls)
	}
}
