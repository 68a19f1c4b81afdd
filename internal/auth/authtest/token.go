// Package authtest signs tokens for tests.
package authtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const Secret = "test-secret-at-least-thirty-two-chars!"

// Token signs an HS256 token for subject that expires after ttl. A negative
// ttl yields an already expired token.
func Token(t testing.TB, secret, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	return Sign(t, secret, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}

// Sign signs arbitrary claims with HS256.
func Sign(t testing.TB, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}
