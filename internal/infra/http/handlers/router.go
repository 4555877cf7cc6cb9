package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/http/middleware"
)

type RouterConfig struct {
	CORSOrigins []string
	Tokens      middleware.TokenParser

	Health     *HealthHandler
	Leads      *LeadHandler
	Auth       *AuthHandler
	Automation *AutomationHandler
	Sync       *SyncHandler
	Webhooks   *WebhookHandler
	Dashboard  *DashboardHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	requireAuth := middleware.RequireAuth(cfg.Tokens)

	// públicas
	r.Get("/health", cfg.Health.Handle)
	r.Get("/info", cfg.Health.Info)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/leads", cfg.Leads.CaptureLead)
	r.Post("/auth/login", cfg.Auth.Login)
	r.Post("/integrations/{provider}-webhook", cfg.Webhooks.Handle)

	r.With(middleware.OptionalAuth(cfg.Tokens)).Post("/auth/register", cfg.Auth.Register)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/auth/me", cfg.Auth.Me)

		r.Get("/leads", cfg.Leads.List)
		r.Get("/leads/{id}", cfg.Leads.Get)
		r.Patch("/leads/{id}", cfg.Leads.Update)

		r.Post("/automation/trigger", cfg.Automation.Trigger)
		r.Get("/automation/status", cfg.Automation.Status)

		r.Post("/sync/trigger", cfg.Sync.Trigger)
		r.Get("/sync/status", cfg.Sync.Status)

		r.Get("/integrations/stats", cfg.Dashboard.IntegrationStats)
		r.Get("/admin/dashboard", cfg.Dashboard.Dashboard)
		r.Get("/stats", cfg.Dashboard.Stats)
	})

	return r
}
