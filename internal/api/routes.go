package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/equihome/launchpad/internal/auth"
	"github.com/equihome/launchpad/internal/ratelimit"
)

// RouteOptions carries the cross-cutting pieces of the router.
type RouteOptions struct {
	Auth           *auth.Manager
	Limiter        *ratelimit.Limiter // nil disables rate limiting
	AllowedOrigins []string
}

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers, opts RouteOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health.HandleHealth)
	r.Get("/health/ready", h.health.HandleReadiness)

	adminAuth := opts.Auth
	if adminAuth == nil {
		adminAuth = auth.NewManager("")
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health.HandleHealth)

		// Public
		r.With(opts.Limiter.Middleware("request-access")).Post("/request-access", h.RequestAccess)
		r.Get("/check-access", h.CheckAccess)
		r.Route("/track", func(r chi.Router) {
			r.Post("/activity", h.TrackActivity)
			r.Post("/progress", h.TrackProgress)
			r.Post("/signin", h.TrackSignIn)
		})
		r.With(opts.Limiter.Middleware("newsletter")).Post("/newsletter/subscribe", h.Subscribe)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(adminAuth.RequireAuth)

			r.Get("/access-requests", h.ListAccessRequests)
			r.Post("/access-requests/{id}", h.UpdateAccessRequest)
			r.Put("/access-requests/{id}", h.UpdateAccessRequest)
			r.Post("/grant-access", h.GrantAccess)
			r.Post("/revoke-access", h.RevokeAccess)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/metrics", h.AdminMetrics)
				r.Get("/recent-activity", h.RecentActivity)
				r.Get("/subscribers", h.Subscribers)
				r.Get("/allowlist", h.Allowlist)
				r.Post("/export", h.ExportSnapshot)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found","code":"not_found"}`))
	})

	return r
}
