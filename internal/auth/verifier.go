// Package auth verifies bearer tokens and resolves the calling user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/georgesalomon/umarket2/internal/logger"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// DefaultLeeway absorbs clock drift between the issuer and this service.
const DefaultLeeway = 30 * time.Second

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
	now      func() time.Time
}

type Option func(*Verifier)

// WithAudience requires the aud claim to contain aud.
func WithAudience(aud string) Option { return func(v *Verifier) { v.audience = aud } }

func WithLeeway(d time.Duration) Option { return func(v *Verifier) { v.leeway = d } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(v *Verifier) { v.now = now } }

func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), leeway: DefaultLeeway, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify returns the token's subject.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	log := logger.FromContext(ctx)
	if token == "" {
		return "", ErrMissingToken
	}
	if len(v.secret) == 0 {
		log.Error("token verification attempted without a signing secret")
		return "", ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token rejected: expired", "error", err)
			return "", ErrExpiredToken
		}
		log.Debug("token rejected", "error", err)
		return "", ErrInvalidToken
	}

	if strings.TrimSpace(claims.Subject) == "" {
		log.Debug("token rejected: missing subject")
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
