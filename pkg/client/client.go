package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client is the Paygate API client
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.RWMutex
	token        string // access token for authenticated requests
	refreshToken string
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "https://pay.example.com")
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new Paygate API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the access token for authenticated requests
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// GetToken returns the current access token
func (c *Client) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetRefreshToken sets the refresh token used by Refresh
func (c *Client) SetRefreshToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshToken = token
}

// GetRefreshToken returns the current refresh token
func (c *Client) GetRefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}

func (c *Client) setPair(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = access
	c.refreshToken = refresh
}

// envelope is the server's success wrapper
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *APIError       `json:"error"`
}

// doRequest performs an HTTP request and decodes the data field of the
// response envelope into result. Bodies without an envelope are decoded
// as-is.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	envErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode >= 400 {
		if envErr != nil || env.Error == nil {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		env.Error.StatusCode = resp.StatusCode
		return env.Error
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	payload := respBody
	if envErr == nil && env.Success != nil {
		if len(env.Data) == 0 {
			return nil
		}
		payload = env.Data
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// DoRaw performs a request against an arbitrary path
func (c *Client) DoRaw(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, method, path, body, result)
}

// Billing returns the payment and subscription service
func (c *Client) Billing() *BillingService {
	return &BillingService{client: c}
}

// Entitlements returns the access state service
func (c *Client) Entitlements() *EntitlementService {
	return &EntitlementService{client: c}
}
