package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

type AutomationService interface {
	Trigger(ctx context.Context, eventType entity.EventType, lead automation.LeadData) (*automation.TriggerResult, error)
	Status(ctx context.Context) (*automation.Status, error)
}

type AutomationHandler struct {
	Engine AutomationService
}

func NewAutomationHandler(engine AutomationService) *AutomationHandler {
	return &AutomationHandler{Engine: engine}
}

type TriggerAutomationRequest struct {
	TriggerType string         `json:"trigger_type"`
	LeadID      string         `json:"lead_id,omitempty"`
	LeadEmail   string         `json:"lead_email,omitempty"`
	LeadName    string         `json:"lead_name,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

func (h *AutomationHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		writeMessage(w, http.StatusServiceUnavailable, usecase.CodeUpstream, "Automation engine não disponível")
		return
	}

	var req TriggerAutomationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Invalid JSON")
		return
	}

	eventType := entity.EventType(req.TriggerType)
	if !eventType.Valid() {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Tipo de trigger inválido: "+req.TriggerType)
		return
	}

	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	res, err := h.Engine.Trigger(r.Context(), eventType, automation.LeadData{
		LeadID: req.LeadID,
		Email:  req.LeadEmail,
		Name:   req.LeadName,
		Data:   data,
	})
	if res == nil {
		if errors.Is(err, automation.ErrUnknownEvent) {
			writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, err.Error())
			return
		}
		writeErrorResponse(w, r, err)
		return
	}

	// falhas de passo já vêm em res.Errors
	writeJSON(w, http.StatusOK, res)
}

func (h *AutomationHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		writeMessage(w, http.StatusServiceUnavailable, usecase.CodeUpstream, "Automation engine não disponível")
		return
	}

	st, err := h.Engine.Status(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
