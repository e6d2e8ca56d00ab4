package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/pratik-mahalle/paygate/pkg/client"
)

// useTempConfig points the CLI at a throwaway config file
func useTempConfig(t *testing.T) {
	t.Helper()
	prev := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	viper.Reset()
	t.Cleanup(func() {
		cfgFile = prev
		viper.Reset()
	})
}

func TestClientMode(t *testing.T) {
	tests := []struct {
		path []string
		want string
	}{
		{[]string{"config", "set"}, clientNone},
		{[]string{"webhook", "sign"}, clientNone},
		{[]string{"webhook", "send"}, clientPublic},
		{[]string{"auth", "login"}, clientPublic},
		{[]string{"auth", "logout"}, clientPublic},
		{[]string{"auth", "whoami"}, ""},
		{[]string{"billing", "subscribe"}, ""},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.path, " "), func(t *testing.T) {
			cmd, _, err := rootCmd.Find(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, clientMode(cmd))
		})
	}
}

func TestWebhookSignProducesVerifiableHeader(t *testing.T) {
	useTempConfig(t)

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.created"}`)
	flags := webhookFlags{file: "-", secret: "whsec_cli"}

	body, header, err := flags.signed(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, body)
	assert.Contains(t, header, "v1=")
	assert.NoError(t, webhook.ValidatePayload(body, header, "whsec_cli"))
	assert.Error(t, webhook.ValidatePayload(body, header, "whsec_other"))
}

func TestWebhookSignRejects(t *testing.T) {
	useTempConfig(t)

	_, _, err := (&webhookFlags{file: "-"}).signed(strings.NewReader(`{}`))
	assert.Error(t, err, "missing secret")

	_, _, err = (&webhookFlags{file: "-", secret: "whsec"}).signed(strings.NewReader(`not json`))
	assert.Error(t, err, "invalid json")
}

func TestWebhookSendDeliversSignedBody(t *testing.T) {
	useTempConfig(t)

	var gotBody []byte
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/webhook", r.URL.Path)
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		gotBody = buf.Bytes()
		gotHeader = r.Header.Get(client.SignatureHeader)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	apiClient = client.NewClient(client.Config{BaseURL: srv.URL})
	flags := webhookFlags{file: "-", secret: "whsec_send"}
	payload, header, err := flags.signed(strings.NewReader(`{"id":"evt_2"}`))
	require.NoError(t, err)

	require.NoError(t, apiClient.SendWebhook(context.Background(), payload, header))
	assert.Equal(t, payload, gotBody)
	assert.NoError(t, webhook.ValidatePayload(gotBody, gotHeader, "whsec_send"))
}

// sessionServer answers the entitlement endpoint with 401 EXPIRED_CREDENTIAL
// until a refresh has happened
func sessionServer(t *testing.T, revoked bool) (*httptest.Server, *int) {
	t.Helper()
	refreshes := 0
	write := func(w http.ResponseWriter, status int, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	fail := func(w http.ResponseWriter, status int, code string) {
		write(w, status, map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": code, "message": code},
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			if revoked {
				fail(w, http.StatusUnauthorized, "REVOKED_CREDENTIAL")
				return
			}
			refreshes++
			write(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]string{"accessToken": "fresh-access", "refreshToken": "fresh-refresh"},
			})
		case "/api/v1/user/subscription":
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				fail(w, http.StatusUnauthorized, "EXPIRED_CREDENTIAL")
				return
			}
			write(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]string{"status": "active", "plan": "price_monthly"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func TestWithSessionRefreshesExpiredAccessToken(t *testing.T) {
	useTempConfig(t)
	srv, refreshes := sessionServer(t, false)

	apiClient = client.NewClient(client.Config{BaseURL: srv.URL})
	apiClient.SetToken("stale-access")
	apiClient.SetRefreshToken("old-refresh")

	var ent *client.Entitlement
	err := withSession(context.Background(), func(ctx context.Context) error {
		var err error
		ent, err = apiClient.Entitlements().Get(ctx)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ent.Active())
	assert.Equal(t, 1, *refreshes)

	// The rotated pair is persisted for the next invocation
	assert.Equal(t, "fresh-access", viper.GetString("auth.token"))
	assert.Equal(t, "fresh-refresh", viper.GetString("auth.refresh_token"))
}

func TestWithSessionClearsRevokedSession(t *testing.T) {
	useTempConfig(t)
	srv, _ := sessionServer(t, true)

	viper.Set("auth.token", "stale-access")
	viper.Set("auth.refresh_token", "replayed-refresh")
	apiClient = client.NewClient(client.Config{BaseURL: srv.URL})
	apiClient.SetToken("stale-access")
	apiClient.SetRefreshToken("replayed-refresh")

	err := withSession(context.Background(), func(ctx context.Context) error {
		_, err := apiClient.Entitlements().Get(ctx)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoked")
	assert.Empty(t, viper.GetString("auth.refresh_token"))
}

func TestFormatRemaining(t *testing.T) {
	secs := int64(5400)
	assert.Equal(t, "1h30m0s", formatRemaining(&secs))
	assert.Equal(t, "-", formatRemaining(nil))
}

