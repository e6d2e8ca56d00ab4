package client

import "time"

// User represents an account
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Profile holds user-facing account details
type Profile struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// TokenPair is returned by refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Entitlement is the caller's access state: active, expired or none
type Entitlement struct {
	Status               string     `json:"status"`
	Plan                 string     `json:"plan,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	RemainingTimeSeconds *int64     `json:"remaining_time_seconds,omitempty"`
}

// Active reports whether the entitlement grants access
func (e *Entitlement) Active() bool {
	return e != nil && e.Status == "active"
}

// PaymentIntent carries what a client needs to confirm payment
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// Pass is a granted one-off pass
type Pass struct {
	ID                   int64      `json:"id"`
	Plan                 string     `json:"plan"`
	Status               string     `json:"status"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	RemainingTimeSeconds *int64     `json:"remaining_time_seconds,omitempty"`
}

// Subscription is a recurring plan
type Subscription struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Plan             string     `json:"plan"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// HealthResponse represents the liveness probe body
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
