package services

import (
	"context"
	"time"

	"github.com/pratik-mahalle/paygate/internal/auth"
	"github.com/pratik-mahalle/paygate/internal/domain/session"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/metrics"
)

// Rotation outcomes recorded in metrics
const (
	rotationRotated = "rotated"
	rotationInvalid = "invalid"
	rotationExpired = "expired"
	rotationReplay  = "replayed"
	rotationError   = "error"
)

// TokenService implements session.Service
type TokenService struct {
	issuer *auth.Issuer
	store  session.Store
	now    func() time.Time
	logger *logger.Logger
}

// NewTokenService creates a new token service
func NewTokenService(issuer *auth.Issuer, store session.Store, log *logger.Logger) *TokenService {
	return &TokenService{
		issuer: issuer,
		store:  store,
		now:    time.Now,
		logger: log,
	}
}

// WithClock replaces the time source used for expiry checks
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	s.issuer = s.issuer.WithClock(now)
	return s
}

// Issue mints a new pair and stores the refresh token
func (s *TokenService) Issue(ctx context.Context, userID int64, email string) (auth.TokenPair, error) {
	pair, exp, err := s.issuer.IssuePair(userID, email)
	if err != nil {
		return auth.TokenPair{}, errors.Internal("Failed to sign tokens", err)
	}

	if err := s.store.Insert(ctx, &session.Credential{
		Token:     pair.RefreshToken,
		UserID:    userID,
		ExpiresAt: exp,
		CreatedAt: s.now(),
	}); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store refresh token")
		return auth.TokenPair{}, err
	}

	return pair, nil
}

// Rotate exchanges a refresh token for a new pair. The old token is deleted
// and the new one stored in a single step, so of two concurrent requests
// presenting the same token only one succeeds.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.RecordRotation(rotationInvalid)
		return auth.TokenPair{}, err
	}

	stored, err := s.store.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			metrics.RecordRotation(rotationReplay)
			s.logger.WithFields(map[string]interface{}{
				"user_id": claims.UserID,
			}).Warn("Refresh token not found or already rotated")
			return auth.TokenPair{}, errors.RevokedCredential()
		}
		metrics.RecordRotation(rotationError)
		return auth.TokenPair{}, err
	}

	if stored.Expired(s.now()) {
		if _, err := s.store.DeleteByToken(ctx, refreshToken); err != nil {
			s.logger.WarnWithErr(err, "Failed to delete expired refresh token")
		}
		metrics.RecordRotation(rotationExpired)
		return auth.TokenPair{}, errors.ExpiredCredential(nil)
	}

	pair, exp, err := s.issuer.IssuePair(stored.UserID, claims.Email)
	if err != nil {
		metrics.RecordRotation(rotationError)
		return auth.TokenPair{}, errors.Internal("Failed to sign tokens", err)
	}

	rotated, err := s.store.Rotate(ctx, refreshToken, &session.Credential{
		Token:     pair.RefreshToken,
		UserID:    stored.UserID,
		ExpiresAt: exp,
		CreatedAt: s.now(),
	})
	if err != nil {
		metrics.RecordRotation(rotationError)
		s.logger.ErrorWithErr(err, "Failed to rotate refresh token")
		return auth.TokenPair{}, err
	}
	if !rotated {
		metrics.RecordRotation(rotationReplay)
		s.logger.WithFields(map[string]interface{}{
			"user_id": stored.UserID,
		}).Warn("Refresh token lost a concurrent rotation")
		return auth.TokenPair{}, errors.RevokedCredential()
	}

	metrics.RecordRotation(rotationRotated)
	return pair, nil
}

// RevokeAll deletes every refresh token of a user
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) error {
	n, err := s.store.DeleteAllByUser(ctx, userID)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to revoke refresh tokens")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"revoked": n,
	}).Info("Refresh tokens revoked")
	return nil
}

// RevokeOne deletes a single refresh token. Unknown tokens are not an error.
func (s *TokenService) RevokeOne(ctx context.Context, refreshToken string) error {
	_, err := s.store.DeleteByToken(ctx, refreshToken)
	return err
}

// Sweep removes expired refresh tokens
func (s *TokenService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.RecordCredentialsSwept(n)
	return n, nil
}
