// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
)

type ctxKey string

const accountKey ctxKey = "account"

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// Authenticator resolves the account behind a request's session cookie.
type Authenticator interface {
	// Authenticate returns the account id and true for a valid session.
	Authenticate(r *http.Request) (string, bool)
	// Clear returns a cookie that removes the session.
	Clear() *http.Cookie
}

// RequireAuth is a middleware that admits only requests carrying a valid
// session cookie.
//
// On success the account id is stored in the request context, so handlers
// can read it with GetAccountIDFromContext. Otherwise the stale cookie is
// cleared and the client is redirected to LoginPath with 303 See Other.
func RequireAuth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := gate.Authenticate(r)
			if !ok {
				http.SetCookie(w, gate.Clear())
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// WithAccountID returns a copy of ctx carrying accountID.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountKey, accountID)
}

// GetAccountIDFromContext extracts the authenticated account id from the
// request context. Returns an empty string if not found.
func GetAccountIDFromContext(ctx context.Context) string {
	val := ctx.Value(accountKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
