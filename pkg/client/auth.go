package client

import (
	"context"
	"fmt"
)

// SignupRequest represents a registration request
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates an account and stores the returned tokens
func (c *Client) Signup(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	req := SignupRequest{Email: email, Password: password, ConfirmPassword: password}
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/signup", req, &resp); err != nil {
		return nil, err
	}

	c.setPair(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

// Login authenticates with email and password and stores the returned tokens
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}

	c.setPair(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

// Refresh rotates the stored refresh token. The old token stops working
// as soon as the server accepts it, so the new pair replaces it here.
func (c *Client) Refresh(ctx context.Context) (*TokenPair, error) {
	refresh := c.GetRefreshToken()
	if refresh == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	var pair TokenPair
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/refresh", map[string]string{"refreshToken": refresh}, &pair); err != nil {
		return nil, err
	}

	c.setPair(pair.AccessToken, pair.RefreshToken)
	return &pair, nil
}

// Logout revokes the session. With everywhere set, every session of the
// user is revoked; otherwise only the stored refresh token.
func (c *Client) Logout(ctx context.Context, everywhere bool) error {
	body := map[string]string{"refreshToken": c.GetRefreshToken()}
	if everywhere {
		body["token"] = c.GetToken()
	}
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/logout", body, nil); err != nil {
		return err
	}

	c.setPair("", "")
	return nil
}

// GetCurrentUser retrieves the currently authenticated user
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.doRequest(ctx, "GET", "/api/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
