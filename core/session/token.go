package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	nowFunc = time.Now // mockable

	errMalformedToken = errors.New("malformed bearer token")
)

// TokenInfo is what the client can tell about a bearer token without verifying it.
type TokenInfo struct {
	IsJWT     bool
	Subject   string
	ExpiresAt time.Time // zero when unknown
}

// Expired reports whether the token carries an expiry before now.
func (ti TokenInfo) Expired(now time.Time) bool {
	return !ti.ExpiresAt.IsZero() && !now.Before(ti.ExpiresAt)
}

// InspectToken checks that token is usable as a bearer credential.
// Tokens are opaque to the client; when one happens to be a JWT its claims are read unverified.
func InspectToken(token string) (TokenInfo, error) {
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return TokenInfo{}, errMalformedToken
	}
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// three dot separated parts but not a JWT: still opaque
		return TokenInfo{}, nil
	}
	info := TokenInfo{IsJWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
