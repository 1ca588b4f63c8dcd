// Package auth identifies the user behind each API request.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// LocalUserID is the owner recorded for uploads when auth is disabled.
const LocalUserID = "local"

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
)

// TokenVerifier checks a bearer token and returns its owner.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*UserClaims, error)
}

type contextKey string

const userClaimsKey contextKey = "user_claims"

// WithUserClaims adds user claims to context
func WithUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaims retrieves user claims from context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*UserClaims)
	return claims, ok
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	claims, ok := GetUserClaims(ctx)
	if !ok {
		return "", false
	}
	return claims.UID, true
}

// RequireAuth returns the caller's claims or ErrUnauthenticated.
func RequireAuth(ctx context.Context) (*UserClaims, error) {
	claims, ok := GetUserClaims(ctx)
	if !ok || claims.UID == "" {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// RequireUserAccess checks that the caller owns a resource belonging to ownerID.
func RequireUserAccess(ctx context.Context, ownerID string) error {
	claims, err := RequireAuth(ctx)
	if err != nil {
		return err
	}
	if claims.UID != ownerID {
		return ErrPermissionDenied
	}
	return nil
}

// Middleware attaches the claims of a valid bearer token to the request
// context. Requests without an Authorization header pass through anonymously;
// handlers decide whether they need a user. An invalid token is rejected.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := ExtractTokenFromHeader(header)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("component", "auth").Msg("rejected token")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserClaims(r.Context(), claims)))
		})
	}
}

// LocalDevMiddleware treats every request as coming from LocalUserID.
func LocalDevMiddleware() func(http.Handler) http.Handler {
	claims := &UserClaims{UID: LocalUserID, DisplayName: "Local User", Verified: true}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUserClaims(r.Context(), claims)))
		})
	}
}
