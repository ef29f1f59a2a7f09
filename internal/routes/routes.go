package routes

import (
	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/handlers"
	"github.com/BradenHooton/gatekeeper/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the admin login routes. Only the login action is
// throttled; the ban status check is free so the form can poll it.
func RegisterRoutes(
	router chi.Router,
	adminHandler *handlers.AdminAuthHandler,
	sessions auth.SessionValidator,
	rateLimitConfig middleware.RateLimitConfig,
) {
	router.Route("/api/admin", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(rateLimitConfig)).Post("/login", adminHandler.Login)
		r.Get("/ban-status", adminHandler.BanStatus)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(sessions))
			r.Get("/session", adminHandler.Session)
		})
	})
}
