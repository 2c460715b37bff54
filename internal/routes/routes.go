package routes

import (
	"net/http"

	"github.com/BradenHooton/riskgate/internal/auth"
	"github.com/BradenHooton/riskgate/internal/handlers"
	"github.com/BradenHooton/riskgate/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Options controls the optional parts of the route table
type Options struct {
	RateLimit      middleware.RateLimitConfig
	MetricsHandler http.Handler
	// LegacyPaths also mounts /login and /verify-challenge for older clients
	LegacyPaths bool
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	tokens auth.AccessTokenValidator,
	opts Options,
) {
	limited := router.With(middleware.RateLimitByIP(opts.RateLimit))

	// Public routes - no authentication required
	limited.Post("/auth/login", authHandler.Login)
	limited.Post("/auth/verify-challenge", authHandler.VerifyChallenge)
	if opts.LegacyPaths {
		limited.Post("/login", authHandler.Login)
		limited.Post("/verify-challenge", authHandler.VerifyChallenge)
	}

	router.Get("/health", healthHandler.Health)
	if opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	// Protected routes - access token required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokens))
		r.Get("/auth/session", handlers.Session)
	})
}
