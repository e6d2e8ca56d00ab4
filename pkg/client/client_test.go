package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": msg},
	})
}

// fakeServer issues numbered tokens and accepts each refresh token once
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	valid := map[string]bool{}
	n := 0
	issue := func() map[string]string {
		n++
		refresh := "refresh-" + string(rune('0'+n))
		valid[refresh] = true
		return map[string]string{"accessToken": "access-" + string(rune('0'+n)), "refreshToken": refresh}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter22" {
			writeErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
			return
		}
		pair := issue()
		writeData(w, http.StatusOK, map[string]interface{}{
			"accessToken":  pair["accessToken"],
			"refreshToken": pair["refreshToken"],
			"user":         map[string]interface{}{"id": 7, "email": req.Email},
		})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if !valid[req["refreshToken"]] {
			writeErr(w, http.StatusUnauthorized, "REVOKED_CREDENTIAL", "Refresh token revoked")
			return
		}
		delete(valid, req["refreshToken"])
		writeData(w, http.StatusOK, issue())
	})
	mux.HandleFunc("/api/v1/premium", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeErr(w, http.StatusForbidden, "ENTITLEMENT_DENIED", "No active subscription")
			return
		}
		writeData(w, http.StatusOK, map[string]interface{}{"status": "active", "plan": "onemonth"})
	})
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"received":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginAndRefresh(t *testing.T) {
	srv := fakeServer(t)
	c := NewClient(Config{BaseURL: srv.URL + "/"})
	ctx := context.Background()

	resp, err := c.Login(ctx, "user@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User == nil || resp.User.ID != 7 {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if c.GetToken() != "access-1" || c.GetRefreshToken() != "refresh-1" {
		t.Fatalf("tokens not stored: %q %q", c.GetToken(), c.GetRefreshToken())
	}

	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c.GetRefreshToken() != "refresh-2" {
		t.Errorf("refresh token = %q, want refresh-2", c.GetRefreshToken())
	}

	ent, err := c.Entitlements().Premium(ctx)
	if err != nil {
		t.Fatalf("Premium() error = %v", err)
	}
	if !ent.Active() {
		t.Errorf("expected active entitlement, got %+v", ent)
	}

	// Presenting a rotated token again is rejected as revoked
	c.SetRefreshToken("refresh-1")
	_, err = c.Refresh(ctx)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() || !apiErr.IsRevoked() {
		t.Errorf("expected revoked 401, got %+v", apiErr)
	}
}

func TestClient_Errors(t *testing.T) {
	srv := fakeServer(t)
	c := NewClient(Config{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := c.Login(ctx, "user@example.com", "wrong")
	apiErr, ok := AsAPIError(err)
	if !ok || !apiErr.IsUnauthorized() || apiErr.Message != "Invalid credentials" {
		t.Errorf("unexpected login error: %v", err)
	}

	_, err = c.Entitlements().Premium(ctx)
	apiErr, ok = AsAPIError(err)
	if !ok || !apiErr.IsForbidden() {
		t.Errorf("expected 403, got %v", err)
	}

	if _, err := c.Refresh(ctx); err == nil {
		t.Error("expected error refreshing without a token")
	}
}

func TestClient_DecodesBodiesWithoutEnvelope(t *testing.T) {
	srv := fakeServer(t)
	c := NewClient(Config{BaseURL: srv.URL})

	var ack struct {
		Received bool `json:"received"`
	}
	if err := c.DoRaw(context.Background(), "POST", "/webhook", nil, &ack); err != nil {
		t.Fatalf("DoRaw() error = %v", err)
	}
	if !ack.Received {
		t.Error("expected received=true")
	}
}
