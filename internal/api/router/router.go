package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/hospital-admin/internal/booking"
	httpmiddleware "github.com/wolfman30/hospital-admin/internal/http/middleware"
	"github.com/wolfman30/hospital-admin/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	BookingHandler     *booking.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// StaffAuthSecret protects /api/bookings. Empty disables auth.
	StaffAuthSecret string
	RateLimiter     *httpmiddleware.RateLimiter
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// Checks run on /ready; any error reports 503.
	Checks map[string]Check
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware. No compression: it would get in the way of the WebSocket
	// upgrade on the events endpoint.
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler)
		public.Get("/ready", readyHandler(cfg.Checks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.BookingHandler != nil {
		r.Group(func(api chi.Router) {
			if cfg.RateLimiter != nil {
				api.Use(cfg.RateLimiter.Middleware)
			}
			api.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
			api.Mount("/api/bookings", cfg.BookingHandler.Routes())
		})
	}

	return r
}
