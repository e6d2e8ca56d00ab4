package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/providers"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/services"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

const testWebhookSecret = "whsec_handler"

func subscriptionEvent(t *testing.T, id, customer string, created time.Time) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"id":      id,
		"object":  "event",
		"type":    "customer.subscription.created",
		"created": created.Unix(),
		"data": map[string]interface{}{"object": map[string]interface{}{
			"id":                   "sub_handler",
			"object":               "subscription",
			"customer":             customer,
			"status":               "active",
			"created":              created.Unix(),
			"current_period_start": created.Unix(),
			"current_period_end":   created.AddDate(0, 1, 0).Unix(),
		}},
	})
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	return b
}

// paddedEvent inflates an event with subscription metadata until it is at
// least size bytes long.
func paddedEvent(t *testing.T, id, customer string, created time.Time, size int) []byte {
	t.Helper()
	var event map[string]interface{}
	if err := json.Unmarshal(subscriptionEvent(t, id, customer, created), &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	object := event["data"].(map[string]interface{})["object"].(map[string]interface{})
	object["metadata"] = map[string]string{"line_items": strings.Repeat("x", size)}
	b, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	return b
}

func TestWebhookHandler_Stripe(t *testing.T) {
	db := testutil.NewTestDB(t)
	u := testutil.CreateUser(t, db, "hook@example.com")
	testutil.LinkCustomer(t, db, u.ID, "cus_hook")

	reconciler := services.NewReconcilerService(
		providers.NewStripeWebhooks(testWebhookSecret, 5*time.Minute),
		postgres.NewUserRepository(db),
		postgres.NewEntitlementRepository(db),
		logger.Nop(),
	)
	handler := NewWebhookHandler(reconciler, logger.Nop())

	now := time.Now().UTC()
	sign := func(payload []byte, secret string) string {
		return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    secret,
			Timestamp: now,
		}).Header
	}

	known := subscriptionEvent(t, "evt_known", "cus_hook", now)
	unknown := subscriptionEvent(t, "evt_unknown", "cus_nobody", now)
	large := paddedEvent(t, "evt_large", "cus_hook", now, 200<<10)
	undecodable := []byte(`{"id":"evt_broken","type":"customer.subscription.updated","data":{"object":"sub_`)
	oversized := paddedEvent(t, "evt_oversized", "cus_hook", now, 2<<20)

	tests := []struct {
		name           string
		payload        []byte
		signature      string
		expectedStatus int
		expectedCode   string
	}{
		{"applied event", known, sign(known, testWebhookSecret), http.StatusOK, ""},
		{"replayed event", known, sign(known, testWebhookSecret), http.StatusOK, ""},
		{"unknown customer is acknowledged", unknown, sign(unknown, testWebhookSecret), http.StatusOK, ""},
		{"event larger than 64KiB", large, sign(large, testWebhookSecret), http.StatusOK, ""},
		{"signed but undecodable payload is acknowledged", undecodable, sign(undecodable, testWebhookSecret), http.StatusOK, ""},
		{"body over the read limit", oversized, sign(oversized, testWebhookSecret), http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"wrong secret", known, sign(known, "whsec_other"), http.StatusBadRequest, errors.ErrCodeUntrustedEvent},
		{"missing signature", known, "", http.StatusBadRequest, errors.ErrCodeUntrustedEvent},
		{"body altered after signing", append([]byte(" "), known...), sign(known, testWebhookSecret), http.StatusBadRequest, errors.ErrCodeUntrustedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook", bytes.NewReader(tt.payload))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rr := httptest.NewRecorder()

			handler.Stripe(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedCode != "" {
				if code := errorCodeOf(t, rr); code != tt.expectedCode {
					t.Errorf("error code = %s, want %s", code, tt.expectedCode)
				}
				return
			}
			var ack dto.WebhookAck
			if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil || !ack.Received {
				t.Errorf("expected {\"received\": true}, got %s", rr.Body.String())
			}
		})
	}
}
