// Package utils provides helper functions for token creation, verification
// and password hashing.
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification: bad
// signature, wrong signing method, malformed claims or expiry. Callers treat
// all of these identically, as a 401.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims embedded in a short-lived access token. The
// token is stateless: its validity is a function of signature and expiry
// only. Identity freshness is enforced separately by the auth middleware,
// which re-resolves the user and tenant on every request.
type AccessClaims struct {
	UserID   uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	TenantID uint64 `json:"tenantId"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims embedded in a refresh token. TokenVersion
// snapshots the user's token_version counter at issuance; the refresh
// endpoint honors the token only while the stored counter still matches,
// which is the coarse revocation mechanism.
type RefreshClaims struct {
	UserID       uint64 `json:"id"`
	TokenVersion int64  `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a signed JWT refresh token along with its expiry.
type RefreshToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user. Access tokens are
// short-lived and presented in the Authorization header on protected routes.
// The secrets for access and refresh tokens are distinct so that compromise
// of one does not compromise the other.
func NewAccessToken(secret string, userID uint64, username, role string, tenantID uint64, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := AccessClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 JWT refresh token embedding the
// user's current token version.
func NewRefreshToken(secret string, userID uint64, tokenVersion int64, ttlDays int) (RefreshToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := RefreshClaims{
		UserID:       userID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry of an access token and
// returns its claims. Any failure maps to ErrInvalidToken.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and expiry of a refresh token and
// returns its claims. Any failure maps to ErrInvalidToken.
func ParseRefreshToken(secret, raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(secret, raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(secret, raw string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC; without this check an
		// attacker could present an unsigned "none" token.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}
