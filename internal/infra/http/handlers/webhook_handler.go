package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/http/middleware"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

const ProviderEduzz = "eduzz"

type PurchaseEvents interface {
	TriggerCartAbandonment(ctx context.Context, data map[string]any) (*automation.TriggerResult, error)
	TriggerPurchaseCompleted(ctx context.Context, data map[string]any) (*automation.TriggerResult, error)
}

type WebhookHandler struct {
	Events PurchaseEvents
}

func NewWebhookHandler(events PurchaseEvents) *WebhookHandler {
	return &WebhookHandler{Events: events}
}

type EduzzWebhook struct {
	EventType     string  `json:"event_type"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Product       string  `json:"product,omitempty"`
	Customer      struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone,omitempty"`
	} `json:"customer"`
}

type WebhookResponse struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message"`
	Result  *automation.TriggerResult `json:"result,omitempty"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if provider != ProviderEduzz {
		writeMessage(w, http.StatusNotFound, usecase.CodeNotFound, "Provider desconhecido: "+provider)
		return
	}

	if h.Events == nil {
		writeMessage(w, http.StatusServiceUnavailable, usecase.CodeUpstream, "Automation engine não disponível")
		return
	}

	var event EduzzWebhook
	if err := decodeJSON(r, &event); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Bad JSON")
		return
	}

	data := map[string]any{
		"transaction_id": event.TransactionID,
		"customer_email": event.Customer.Email,
		"customer_name":  event.Customer.Name,
		"telefone":       event.Customer.Phone,
		"amount":         event.Amount,
		"product":        event.Product,
	}

	var (
		res *automation.TriggerResult
		err error
	)
	switch event.EventType {
	case "purchase_approved":
		middleware.RecordWebhook(provider, event.EventType)
		res, err = h.Events.TriggerPurchaseCompleted(r.Context(), data)
	case "cart_abandoned":
		middleware.RecordWebhook(provider, event.EventType)
		res, err = h.Events.TriggerCartAbandonment(r.Context(), data)
	default:
		// eventos que não disparam automação são aceitos e ignorados
		middleware.RecordWebhook(provider, "ignored")
		writeJSON(w, http.StatusOK, WebhookResponse{Success: true, Message: "Evento ignorado"})
		return
	}

	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Str("event", event.EventType).
			Str("email", logger.MaskEmail(event.Customer.Email)).Msg("⚠️ Automação do webhook falhou")
		if res == nil {
			writeErrorResponse(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, WebhookResponse{Success: true, Message: "Webhook processado", Result: res})
}
