/**
 * @description
 * This file sets up the HTTP router for the payout-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the admin dashboard origin.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the trust-boundary settings the router wires into
// middleware.
type RouterConfig struct {
	ClerkJWKSURL            string
	CronSecret              string
	RateLimiter             RateLimiter
	CronRateLimitPerMinute  int
	AdminRateLimitPerMinute int
	AllowedOrigins          []string
}

// PayoutRoutes creates and returns a new router for the payout service.
func PayoutRoutes(h *PayoutHandlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*.retreatbase.com"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Admin surface: requires a Clerk JWT carrying the admin role. The
	// execution trigger additionally carries its own per-admin rate limit.
	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(cfg.ClerkJWKSURL))

		r.With(AdminRateLimitMiddleware(cfg.RateLimiter, cfg.AdminRateLimitPerMinute)).
			Post("/payouts/process", h.ProcessPayoutsHandler)
		r.Get("/payouts", h.ListPayoutsHandler)
		r.Get("/escrow/{escrowID}", h.GetEscrowHandler)
	})

	// Cron trigger path: shared secret plus rate limit, no user identity.
	r.Group(func(r chi.Router) {
		r.Use(CronSecretMiddleware(cfg.CronSecret, cfg.RateLimiter, cfg.CronRateLimitPerMinute))

		r.Post("/internal/payouts/process", h.CronProcessPayoutsHandler)
	})

	return r
}
