package main

import (
	"context"

	authMW "snapfeed/internal/auth/middleware"
)

// sessionSource adapts the auth middleware's context session to the rate
// limit middleware's SessionSource interface. The conversion lives at the
// composition root so the ratelimit module stays decoupled from auth types.
type sessionSource struct{}

func (sessionSource) Current(ctx context.Context) (string, bool) {
	sess := authMW.GetSession(ctx)
	if sess == nil || !sess.Authorized {
		return "", false
	}
	return sess.UserID.String(), true
}
