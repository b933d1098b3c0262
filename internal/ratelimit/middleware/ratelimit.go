package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	platformMW "snapfeed/internal/platform/middleware"
	"snapfeed/internal/ratelimit"
	"snapfeed/internal/ratelimit/models"
	"snapfeed/internal/transport/httputil"
)

// SessionSource resolves the caller's identity for limiter keying. An
// authorized caller is keyed by user ID; everyone else by source IP.
type SessionSource interface {
	Current(ctx context.Context) (userID string, authorized bool)
}

// Costs is the per-tier request cost weighting.
type Costs struct {
	GeneralAuthenticated int
	GeneralAnonymous     int
	PhotosAuthenticated  int
	PhotosAnonymous      int
}

// photosPrefix selects the tighter photos limiter for upload-heavy routes.
const photosPrefix = "/photos"

// Middleware applies the general and photos limiters to every inbound
// request.
type Middleware struct {
	general  *ratelimit.Limiter
	photos   *ratelimit.Limiter
	sessions SessionSource
	costs    Costs
	logger   *slog.Logger
}

func New(general, photos *ratelimit.Limiter, sessions SessionSource, costs Costs, logger *slog.Logger) (*Middleware, error) {
	if general == nil || photos == nil {
		return nil, fmt.Errorf("rate limit middleware: both limiters are required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("rate limit middleware: session source is required")
	}
	return &Middleware{
		general:  general,
		photos:   photos,
		sessions: sessions,
		costs:    costs,
		logger:   logger,
	}, nil
}

// Throttle consumes from the tier limiter matching the request path before
// any route logic runs. Rate-limit rejections become 429 responses; any
// other limiter error propagates to generic error handling unmasked.
func (m *Middleware) Throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, authorized := m.sessions.Current(ctx)
		subject := userID
		if !authorized {
			subject = platformMW.GetClientIP(ctx)
		}

		limiter, cost := m.selectTier(r.URL.Path, authorized)

		rec, err := limiter.Consume(ctx, subject, cost)
		if err != nil {
			var exceeded *models.RateLimitError
			if errors.As(err, &exceeded) {
				m.writeExceeded(w, r, userID, authorized, exceeded)
				return
			}
			httputil.WriteError(w, err)
			return
		}

		addRateLimitHeaders(w, limiter.Policy().Points, rec)
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) selectTier(path string, authorized bool) (*ratelimit.Limiter, int) {
	if strings.HasPrefix(path, photosPrefix) {
		if authorized {
			return m.photos, m.costs.PhotosAuthenticated
		}
		return m.photos, m.costs.PhotosAnonymous
	}
	if authorized {
		return m.general, m.costs.GeneralAuthenticated
	}
	return m.general, m.costs.GeneralAnonymous
}

func (m *Middleware) writeExceeded(w http.ResponseWriter, r *http.Request, userID string, authorized bool, exceeded *models.RateLimitError) {
	subject := "Client"
	if authorized {
		subject = "User " + userID
	}
	retryAfter := exceeded.RetryAfterSeconds()

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    fmt.Sprintf("%s exceeded the request limit for %s, retry after %d seconds", subject, r.URL.Path, retryAfter),
		RetryAfter: retryAfter,
	})
}

// addRateLimitHeaders adds X-RateLimit-* headers on allowed responses.
func addRateLimitHeaders(w http.ResponseWriter, limit int, rec *models.ConsumptionRecord) {
	if rec == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rec.RemainingPoints))
}
