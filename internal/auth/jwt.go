package auth

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pratik-mahalle/paygate/internal/config"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
)

// TokenPair is an access token plus the renewal token that can replace it
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Claims carry identity only. Authorization state is read from the
// entitlement ledger on every request, never from the token.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access and refresh tokens. Access and refresh
// tokens use distinct secrets so one can never be presented as the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewIssuer creates an issuer from auth configuration
func NewIssuer(cfg config.AuthConfig) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenExpiry,
		refreshTTL:    cfg.RefreshTokenExpiry,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
}

// WithClock returns a copy of the issuer using now as its time source
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// AccessTTL returns the access token lifetime
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh token lifetime
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess signs a short-lived access token
func (i *Issuer) IssueAccess(userID int64, email string) (string, error) {
	tok, _, err := i.sign(userID, email, i.accessSecret, i.accessTTL)
	return tok, err
}

// IssueRefresh signs a refresh token and returns its expiry so the caller
// can persist it alongside the token value.
func (i *Issuer) IssueRefresh(userID int64, email string) (string, time.Time, error) {
	return i.sign(userID, email, i.refreshSecret, i.refreshTTL)
}

// IssuePair signs a fresh access token and refresh token
func (i *Issuer) IssuePair(userID int64, email string) (TokenPair, time.Time, error) {
	at, err := i.IssueAccess(userID, email)
	if err != nil {
		return TokenPair{}, time.Time{}, err
	}
	rt, exp, err := i.IssueRefresh(userID, email)
	if err != nil {
		return TokenPair{}, time.Time{}, err
	}
	return TokenPair{AccessToken: at, RefreshToken: rt}, exp, nil
}

func (i *Issuer) sign(userID int64, email string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	s, err := t.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// VerifyAccess validates an access token. Expired tokens yield an
// ExpiredCredential error, anything else a MalformedCredential error.
func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	c, err := i.parse(token, i.accessSecret)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ExpiredCredential(err)
		}
		return nil, errors.MalformedCredential(err)
	}
	return c, nil
}

// VerifyRefresh validates the signature and expiry of a refresh token
func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	c, err := i.parse(token, i.refreshSecret)
	if err != nil {
		return nil, errors.InvalidCredential(err)
	}
	return c, nil
}

func (i *Issuer) parse(tokenStr string, secret []byte) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}
