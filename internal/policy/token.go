package policy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the web pages read the session token from.
const CookieName = "token"

var ErrNoToken = errors.New("no token")

// IssueToken signs an HS256 token whose subject is userID.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns the principal it names.
func ParseToken(secret, tokenStr string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Anonymous, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Anonymous, errors.New("invalid token claims")
	}
	return Principal{UserID: claims.Subject}, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the session cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, prefix) {
			return "", errors.New("malformed Authorization header")
		}
		return strings.TrimSpace(auth[len(prefix):]), nil
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", ErrNoToken
}
