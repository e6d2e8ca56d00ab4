package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SignatureHeader carries the billing provider's payload signature
const SignatureHeader = "Stripe-Signature"

// SendWebhook delivers a pre-signed provider notification. The payload is
// sent byte for byte since the signature covers the exact body.
func (c *Client) SendWebhook(ctx context.Context, payload []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/webhook", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return nil
}
