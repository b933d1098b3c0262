// Package httptransport assembles the public HTTP surface: the middleware
// stack, the auth and social routes, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "snapfeed/internal/auth/handler"
	authMW "snapfeed/internal/auth/middleware"
	"snapfeed/internal/platform/health"
	"snapfeed/internal/platform/metrics"
	platformMW "snapfeed/internal/platform/middleware"
	rlMW "snapfeed/internal/ratelimit/middleware"
	socialHandler "snapfeed/internal/social/handler"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router needs. All fields are required.
type Deps struct {
	Auth     *authHandler.Handler
	Social   *socialHandler.Handler
	Sessions authMW.SessionResolver
	Throttle *rlMW.Middleware
	Health   *health.Handler
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NewRouter wires all public endpoints with middleware.
//
// Health and metrics endpoints sit outside the session and rate-limit
// layers so probes and scrapes are never throttled. Everything else goes
// through session resolution and then the tiered limiter.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(platformMW.Recovery(d.Logger))
	r.Use(platformMW.RequestID)
	r.Use(platformMW.ClientIP)
	r.Use(platformMW.Logger(d.Logger))
	r.Use(d.Metrics.ObserveLatency)
	r.Use(platformMW.Timeout(requestTimeout))

	d.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMW.Session(d.Sessions, d.Logger))
		r.Use(d.Throttle.Throttle)

		r.Route("/auth", func(r chi.Router) {
			r.Use(platformMW.ContentTypeJSON)
			r.Post("/register", d.Auth.HandleRegister)
			r.Post("/login", d.Auth.HandleLogin)
			r.With(authMW.RequireAuth).Post("/logout", d.Auth.HandleLogout)
		})

		r.Route("/photos", func(r chi.Router) {
			r.Get("/", d.Social.HandleListPhotos)
			r.With(authMW.RequireAuth).Post("/", d.Social.HandleUploadPhoto)

			r.Route("/{photoID}", func(r chi.Router) {
				r.Get("/", d.Social.HandleGetPhoto)
				r.Get("/image", d.Social.HandleDownloadPhoto)
				r.With(authMW.RequireAuth).Delete("/", d.Social.HandleDeletePhoto)

				r.Get("/captions", d.Social.HandleListCaptions)
				r.With(authMW.RequireAuth, platformMW.ContentTypeJSON).
					Post("/captions", d.Social.HandleAddCaption)

				r.With(authMW.RequireAuth, platformMW.ContentTypeJSON).
					Post("/votes", d.Social.HandleCastVote)
				r.With(authMW.RequireAuth).Delete("/votes", d.Social.HandleRemoveVote)
			})
		})
	})

	return r
}
