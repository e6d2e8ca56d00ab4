package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/auth"
	"github.com/pratik-mahalle/paygate/internal/config"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
	"github.com/pratik-mahalle/paygate/internal/pkg/validator"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/services"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

type apiFixture struct {
	db       *postgres.DB
	issuer   *auth.Issuer
	provider *testutil.FakeProvider
	guard    *services.EntitlementService
	auth     *AuthHandler
	user     *UserHandler
	payment  *PaymentHandler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "development"},
		Auth: config.AuthConfig{
			AccessSecret:       "access-secret",
			RefreshSecret:      "refresh-secret",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
			Issuer:             "paygate",
		},
	}
	log := logger.Nop()
	val := validator.New()

	db := testutil.NewTestDB(t)
	issuer := auth.NewIssuer(cfg.Auth)
	provider := testutil.NewFakeProvider()
	ledger := postgres.NewEntitlementRepository(db)

	userService := services.NewUserService(postgres.NewUserRepository(db), provider, bcrypt.MinCost, log)
	tokens := services.NewTokenService(issuer, postgres.NewCredentialRepository(db), log)
	guard := services.NewEntitlementService(ledger, log)
	payments := services.NewPaymentService(userService, provider, ledger, "usd", log)

	return &apiFixture{
		db:       db,
		issuer:   issuer,
		provider: provider,
		guard:    guard,
		auth:     NewAuthHandler(userService, tokens, issuer, cfg, log, val),
		user:     NewUserHandler(userService, guard, log),
		payment:  NewPaymentHandler(payments, guard, log, val),
	}
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userID int64, email string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.UserEmailKey, email)
	return req.WithContext(ctx)
}

// decodeData unwraps the success envelope into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %s", rr.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
}

func errorCodeOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error %q: %v", rr.Body.String(), err)
	}
	return body.Error.Code
}

func cookieValue(rr *httptest.ResponseRecorder, name string) (*http.Cookie, bool) {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
