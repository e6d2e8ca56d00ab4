package dto

import (
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ProfileDTO represents a user profile
type ProfileDTO struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntitlementResponse reports the caller's access. Fixed-window plans carry
// end_date, time-boxed passes remaining_time_seconds.
type EntitlementResponse struct {
	Status               string     `json:"status"`
	Plan                 string     `json:"plan,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	RemainingTimeSeconds *int64     `json:"remaining_time_seconds,omitempty"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *user.User) *UserDTO {
	return &UserDTO{ID: u.ID, Email: u.Email}
}

// ToProfileDTO converts a domain profile
func ToProfileDTO(p *user.Profile) *ProfileDTO {
	return &ProfileDTO{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		CreatedAt:   p.CreatedAt,
	}
}

// ToEntitlementResponse converts a guard verdict
func ToEntitlementResponse(v entitlement.Verdict) *EntitlementResponse {
	if v.Status == entitlement.VerdictNone {
		return &EntitlementResponse{Status: string(v.Status)}
	}
	return &EntitlementResponse{
		Status:               string(v.Status),
		Plan:                 v.Plan,
		EndDate:              v.EndDate,
		RemainingTimeSeconds: v.RemainingSeconds,
	}
}
