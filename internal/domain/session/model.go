package session

import "time"

// Credential is a persisted refresh token. Its presence in the store is
// what makes the token usable; once deleted it is never accepted again.
type Credential struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the stored expiry has passed at now
func (c *Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
