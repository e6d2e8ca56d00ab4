package session

import (
	"context"

	"github.com/pratik-mahalle/paygate/internal/auth"
)

// Service manages the refresh token lifecycle
type Service interface {
	// Issue mints a token pair for an authenticated user and persists the
	// refresh token.
	Issue(ctx context.Context, userID int64, email string) (auth.TokenPair, error)

	// Rotate exchanges a refresh token for a new pair. A token that was
	// already rotated or revoked fails with a RevokedCredential error.
	Rotate(ctx context.Context, refreshToken string) (auth.TokenPair, error)

	// RevokeAll deletes every refresh token owned by the user
	RevokeAll(ctx context.Context, userID int64) error

	// RevokeOne deletes a single refresh token
	RevokeOne(ctx context.Context, refreshToken string) error

	// Sweep removes expired refresh tokens and returns how many were deleted
	Sweep(ctx context.Context) (int64, error)
}
