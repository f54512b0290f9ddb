// Package devtoken mints HS256 development tokens whose payload mirrors the
// Firebase ID token shape, so they flow through the regular auth middleware
// when AUTH_PROVIDER=dev. Never use in production.
package devtoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params captures the claims required for a dev token. No environment
// variables are read so the builder stays deterministic for tooling.
type Params struct {
	UserID        string        // user_id/sub/uid (required)
	Email         string        // email claim (required)
	Name          string        // display name (optional)
	EmailVerified bool          // email_verified claim
	ExpiresIn     time.Duration // relative expiry; default 1h if zero
	Issuer        string        // optional override; defaults to "bkpos-dev"
}

// Build returns a signed HS256 JWT for the given params.
func Build(p Params, secret string, now time.Time) (string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return "", errors.New("userID is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return "", errors.New("email is required")
	}
	if secret == "" {
		return "", errors.New("signing secret is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	issuer := p.Issuer
	if strings.TrimSpace(issuer) == "" {
		issuer = "bkpos-dev"
	}

	claims := jwt.MapClaims{
		"iss":            issuer,
		"sub":            p.UserID,
		"uid":            p.UserID,
		"user_id":        p.UserID,
		"email":          p.Email,
		"email_verified": p.EmailVerified,
		"auth_time":      now.Unix(),
		"iat":            now.Unix(),
		"exp":            now.Add(expiresIn).Unix(),
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
