package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	authHandler "snapfeed/internal/auth/handler"
	authService "snapfeed/internal/auth/service"
	sessionStore "snapfeed/internal/auth/store/session"
	userStore "snapfeed/internal/auth/store/user"
	"snapfeed/internal/auth/token"
	"snapfeed/internal/platform/config"
	"snapfeed/internal/platform/database"
	"snapfeed/internal/platform/health"
	"snapfeed/internal/platform/logger"
	"snapfeed/internal/platform/metrics"
	platformRedis "snapfeed/internal/platform/redis"
	"snapfeed/internal/ratelimit"
	rlConfig "snapfeed/internal/ratelimit/config"
	"snapfeed/internal/ratelimit/loginguard"
	rlMetrics "snapfeed/internal/ratelimit/metrics"
	rlMW "snapfeed/internal/ratelimit/middleware"
	"snapfeed/internal/ratelimit/store/bucket"
	socialHandler "snapfeed/internal/social/handler"
	socialService "snapfeed/internal/social/service"
	socialStore "snapfeed/internal/social/store"
	httptransport "snapfeed/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	log.Info("initializing snapfeed",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	appMetrics := metrics.New()
	limiterMetrics := rlMetrics.New()

	// Durable counters live in Redis; without Redis the process falls back
	// to memory-only counting, which is fine for development but loses
	// cross-instance enforcement.
	var durable ratelimit.BucketStore
	if redisClient != nil {
		durable = bucket.NewRedis(redisClient.Client)
	} else {
		log.Warn("redis not configured, rate limit counters are process-local")
		durable = bucket.New()
	}

	policies := rlConfig.Default(cfg.Environment)
	newLimiter := func(s rlConfig.LimiterSettings) *ratelimit.Limiter {
		lim, err := ratelimit.New(ratelimit.Config{
			Policy:                   s.Policy,
			Store:                    durable,
			InsuranceStore:           bucket.New(),
			InsuranceBlockOnConsumed: s.InsuranceBlockOnConsumed,
			InsuranceBlockDuration:   s.InsuranceBlockDuration,
			Logger:                   log,
			Metrics:                  limiterMetrics,
		})
		if err != nil {
			log.Error("limiter init failed", "prefix", s.Policy.KeyPrefix, "error", err)
			os.Exit(1)
		}
		return lim
	}

	general := newLimiter(policies.General)
	photos := newLimiter(policies.Photos)
	loginIP := newLimiter(policies.LoginIP)
	loginUserIP := newLimiter(policies.LoginUserIP)

	guard, err := loginguard.New(loginIP, loginUserIP,
		loginguard.WithLogger(log),
		loginguard.WithMetrics(limiterMetrics),
	)
	if err != nil {
		log.Error("login guard init failed", "error", err)
		os.Exit(1)
	}

	var users authService.UserStore
	if db != nil {
		users = userStore.NewPostgres(db.DB())
	} else {
		log.Warn("database not configured, users are process-local")
		users = userStore.NewInMemory()
	}

	var sessions authService.SessionStore
	if redisClient != nil {
		sessions = sessionStore.NewRedis(redisClient.Client)
	} else {
		sessions = sessionStore.NewInMemory()
	}

	tokens := token.New(cfg.JWTSigningKey)

	authSvc, err := authService.New(users, sessions, guard, tokens,
		authService.WithLogger(log),
		authService.WithMetrics(appMetrics),
		authService.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		log.Error("auth service init failed", "error", err)
		os.Exit(1)
	}

	objectDir := os.Getenv("SNAPFEED_OBJECT_DIR")
	if objectDir == "" {
		objectDir = "data/objects"
	}
	objects, err := newLocalObjectStore(objectDir)
	if err != nil {
		log.Error("object store init failed", "error", err)
		os.Exit(1)
	}

	var social socialService.SocialStore
	if db != nil {
		social = socialStore.NewPostgres(db.DB())
	} else {
		social = socialStore.NewInMemory()
	}

	socialSvc, err := socialService.New(social, objects,
		socialService.WithLogger(log),
		socialService.WithMetrics(appMetrics),
	)
	if err != nil {
		log.Error("social service init failed", "error", err)
		os.Exit(1)
	}

	throttle, err := rlMW.New(general, photos, sessionSource{}, rlMW.Costs{
		GeneralAuthenticated: policies.GeneralCostAuthenticated,
		GeneralAnonymous:     policies.GeneralCostAnonymous,
		PhotosAuthenticated:  policies.PhotosCostAuthenticated,
		PhotosAnonymous:      policies.PhotosCostAnonymous,
	}, log)
	if err != nil {
		log.Error("rate limit middleware init failed", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(string(cfg.Environment))
	if db != nil {
		healthHandler.RegisterCheck("postgres", dependencyCheck(db.Health))
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", dependencyCheck(redisClient.Health))
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:     authHandler.New(authSvc, log),
		Social:   socialHandler.New(socialSvc, log),
		Sessions: authSvc,
		Throttle: throttle,
		Health:   healthHandler,
		Metrics:  appMetrics,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if redisClient != nil {
		go recordPoolStats(redisClient)
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// dependencyCheck bounds a health probe so a hung dependency cannot stall
// the readiness endpoint.
func dependencyCheck(probe func(context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return probe(ctx)
	}
}

func recordPoolStats(client *platformRedis.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		client.RecordPoolStats()
	}
}
