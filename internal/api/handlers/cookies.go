package handlers

import (
	"net/http"
	"time"

	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/auth"
)

// RefreshTokenCookie carries the refresh token for browser clients
const RefreshTokenCookie = "refreshToken"

func tokenCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
	}
	if maxAge < 0 {
		c.MaxAge = -1
	}
	return c
}

func setAuthCookies(w http.ResponseWriter, pair auth.TokenPair, issuer *auth.Issuer, secure bool) {
	http.SetCookie(w, tokenCookie(middleware.AccessTokenCookie, pair.AccessToken, issuer.AccessTTL(), secure))
	http.SetCookie(w, tokenCookie(RefreshTokenCookie, pair.RefreshToken, issuer.RefreshTTL(), secure))
}

func clearAuthCookies(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, tokenCookie(middleware.AccessTokenCookie, "", -1, secure))
	http.SetCookie(w, tokenCookie(RefreshTokenCookie, "", -1, secure))
}
