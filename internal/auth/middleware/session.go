package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"snapfeed/internal/auth/models"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "snapfeed_session"

// SessionResolver loads the session referenced by a cookie token.
// Invalid, expired, or unknown tokens resolve to nil without error.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*models.Session, error)
}

type sessionKey struct{}

// Session resolves the caller's session from the cookie and stores it in
// the request context. Requests without a valid session proceed as
// anonymous; resolution failures are logged, never fatal to the request.
func Session(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sess, err := resolver.ResolveSession(ctx, cookie.Value)
				if err != nil {
					logger.Warn("session resolution failed", "error", err)
				} else if sess != nil {
					ctx = context.WithValue(ctx, sessionKey{}, sess)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the resolved session from the context, or nil for
// anonymous callers.
func GetSession(ctx context.Context) *models.Session {
	if sess, ok := ctx.Value(sessionKey{}).(*models.Session); ok {
		return sess
	}
	return nil
}

// RequireAuth rejects requests without an authorized session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil || !sess.Authorized {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","error_description":"login required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
