package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/bridge"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

const recentLeadsLimit = 10

type LeadStats interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[entity.LeadStatus]int, error)
	List(ctx context.Context) ([]*entity.Lead, error)
}

type automationStatus interface {
	Status(ctx context.Context) (*automation.Status, error)
}

type syncStatus interface {
	Status(ctx context.Context) (*bridge.Status, error)
}

type DashboardHandler struct {
	Leads      LeadStats
	Automation automationStatus
	Sync       syncStatus
}

func NewDashboardHandler(leads LeadStats, automation automationStatus, sync syncStatus) *DashboardHandler {
	return &DashboardHandler{Leads: leads, Automation: automation, Sync: sync}
}

type StatsResponse struct {
	TotalLeads        int     `json:"total_leads"`
	LeadsNovos        int     `json:"leads_novos"`
	LeadsQualificados int     `json:"leads_qualificados"`
	LeadsVendidos     int     `json:"leads_vendidos"`
	TaxaConversao     float64 `json:"taxa_conversao"`
}

type DashboardResponse struct {
	Leads       map[entity.LeadStatus]int `json:"leads_by_status"`
	Stats       StatsResponse             `json:"stats"`
	RecentLeads []*entity.Lead            `json:"recent_leads"`
	Automation  *automation.Status        `json:"automation,omitempty"`
	Sync        *bridge.Status            `json:"sync,omitempty"`
}

type IntegrationStatsResponse struct {
	TotalLeads           int        `json:"total_leads"`
	AutomationsTriggered int        `json:"automations_triggered"`
	EventsProcessed      int        `json:"events_processed"`
	LastSync             *time.Time `json:"last_sync"`
	SyncNeeded           bool       `json:"sync_needed"`
}

// ConversionRate é vendidos/total em %, com duas casas.
func ConversionRate(sold, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(sold)/float64(total)*100*100) / 100
}

func (h *DashboardHandler) stats(ctx context.Context) (StatsResponse, map[entity.LeadStatus]int, error) {
	total, err := h.Leads.Count(ctx)
	if err != nil {
		return StatsResponse{}, nil, err
	}
	byStatus, err := h.Leads.CountByStatus(ctx)
	if err != nil {
		return StatsResponse{}, nil, err
	}
	for _, s := range entity.AllStatuses() {
		if _, ok := byStatus[s]; !ok {
			byStatus[s] = 0
		}
	}
	return StatsResponse{
		TotalLeads:        total,
		LeadsNovos:        byStatus[entity.StatusNovo],
		LeadsQualificados: byStatus[entity.StatusQualificado],
		LeadsVendidos:     byStatus[entity.StatusVendido],
		TaxaConversao:     ConversionRate(byStatus[entity.StatusVendido], total),
	}, byStatus, nil
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, _, err := h.stats(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	st, byStatus, err := h.stats(ctx)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}

	leads, err := h.Leads.List(ctx)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	if len(leads) > recentLeadsLimit {
		leads = leads[:recentLeadsLimit]
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}

	resp := DashboardResponse{Leads: byStatus, Stats: st, RecentLeads: leads}

	// status parciais não derrubam o dashboard
	if h.Automation != nil {
		if as, err := h.Automation.Status(ctx); err == nil {
			resp.Automation = as
		}
	}
	if h.Sync != nil {
		if ss, err := h.Sync.Status(ctx); err == nil {
			resp.Sync = ss
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DashboardHandler) IntegrationStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.Leads.Count(ctx)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	resp := IntegrationStatsResponse{TotalLeads: total}

	if h.Automation != nil {
		as, err := h.Automation.Status(ctx)
		if err != nil {
			writeErrorResponse(w, r, err)
			return
		}
		resp.AutomationsTriggered = as.CompletedInstances
		resp.EventsProcessed = as.EventsProcessed
	}
	if h.Sync != nil {
		ss, err := h.Sync.Status(ctx)
		if err != nil {
			writeErrorResponse(w, r, err)
			return
		}
		resp.LastSync = ss.LastSync
		resp.SyncNeeded = ss.SyncNeeded
	}

	writeJSON(w, http.StatusOK, resp)
}
