// Package auth resolves the acting user from session tokens issued by the
// external identity service. Registration, login, and credential storage are
// owned by that service; this package only validates what it minted (shared
// HS256 secret) and exposes the user id to handlers.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/snapvid/snapvid/internal/httputil"
)

type contextKey string

const userIDKey contextKey = "userID"

type Verifier struct {
	sessionSecret string
}

func NewVerifier(sessionSecret string) *Verifier {
	return &Verifier{sessionSecret: sessionSecret}
}

// Middleware rejects requests without a valid session token.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := v.resolve(r)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional resolves the session when one is presented and continues
// anonymously otherwise. Listing endpoints use it: signed-in viewers see
// their own private videos, everyone else only sees public ones.
func (v *Verifier) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := v.resolve(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) resolve(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return "", false
	}

	claims, err := ValidateSessionToken(v.sessionSecret, tokenStr)
	if err != nil {
		return "", false
	}

	return claims.UserID, true
}

// UserIDFromContext returns the acting user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
