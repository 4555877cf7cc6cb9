package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapta uma função qualquer a Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type connState interface {
	IsClosed() bool
}

type HealthHandler struct {
	LeadStore Pinger
	RabbitMQ  connState
	Redis     Pinger
	// Components extras, ex.: automation_engine, database_bridge
	Components map[string]bool
	Version    string
	StartTime  time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	Timestamp    time.Time         `json:"timestamp"`
}

func NewHealthHandler(leadStore Pinger, version string) *HealthHandler {
	return &HealthHandler{
		LeadStore:  leadStore,
		Components: map[string]bool{},
		Version:    version,
		StartTime:  time.Now(),
	}
}

func checkPinger(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return "healthy"
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string)
	deps["lead_store"] = checkPinger(ctx, h.LeadStore)
	deps["redis"] = checkPinger(ctx, h.Redis)

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	for name, ok := range h.Components {
		if ok {
			deps[name] = "healthy"
		} else {
			deps[name] = "unhealthy: not initialized"
		}
	}

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
		Timestamp:    time.Now().UTC(),
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

type InfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Features  []string `json:"features"`
	Endpoints []string `json:"endpoints"`
}

func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Name:    "Hybrid Nexus Funnel",
		Version: h.Version,
		Features: []string{
			"Unified Lead Management",
			"Cross-system Automation",
			"Real-time Data Sync",
			"Multi-platform Integration",
		},
		Endpoints: []string{
			"/health", "/info", "/leads", "/auth/login",
			"/automation/trigger", "/automation/status",
			"/sync/trigger", "/sync/status",
			"/integrations/eduzz-webhook", "/integrations/stats",
			"/admin/dashboard", "/stats", "/metrics",
		},
	})
}
