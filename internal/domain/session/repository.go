package session

import (
	"context"
	"time"
)

// Store persists refresh tokens. It carries no business rules.
type Store interface {
	// Insert persists a refresh token
	Insert(ctx context.Context, cred *Credential) error

	// FindByToken returns the stored credential or a NotFound error
	FindByToken(ctx context.Context, token string) (*Credential, error)

	// DeleteByToken removes a single token and reports whether a row was removed
	DeleteByToken(ctx context.Context, token string) (bool, error)

	// DeleteAllByUser removes every token owned by a user
	DeleteAllByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes tokens whose expiry is before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Rotate deletes oldToken and inserts replacement in one transaction.
	// It returns false, inserting nothing, when oldToken was already gone.
	Rotate(ctx context.Context, oldToken string, replacement *Credential) (bool, error)
}
