// Package router assembles the HTTP surface: public webhook and status
// endpoints, and the JWT-protected admin sync endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sheep1986/apex-sub005/internal/http/handlers"
	httpmiddleware "github.com/sheep1986/apex-sub005/internal/http/middleware"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Webhook            *handlers.WebhookHandler
	Status             *handlers.StatusHandler
	Sync               *handlers.SyncHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: provider webhooks and probes. The webhook route
	// carries no auth or rate limiting; the provider retries on anything
	// but a fast 2xx.
	r.Group(func(public chi.Router) {
		if cfg.Status != nil {
			public.Get("/health", cfg.Status.Health)
			public.Get("/status", cfg.Status.Status)
		}
		if cfg.Webhook != nil {
			public.Post("/webhook", cfg.Webhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin endpoints, JWT-protected.
	if cfg.Sync != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/sync-calls", cfg.Sync.SyncCalls)
			admin.Post("/sync-call/{callID}", cfg.Sync.SyncCall)
		})
	}

	return r
}
