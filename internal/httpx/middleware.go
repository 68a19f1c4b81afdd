package httpx

import (
	"context"
	"net/http"

	"github.com/georgesalomon/umarket2/internal/auth"
	"github.com/georgesalomon/umarket2/internal/logger"
)

// TokenVerifier resolves a bearer token to the user it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type callerKey struct{}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id on the context.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, r, err)
				return
			}
			user, err := v.Verify(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), callerKey{}, user)
			ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("user_id", user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Caller returns the authenticated user id, or "" outside RequireAuth.
func Caller(ctx context.Context) string {
	user, _ := ctx.Value(callerKey{}).(string)
	return user
}
