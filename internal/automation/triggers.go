package automation

import (
	"context"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

func leadData(lead *entity.Lead) LeadData {
	return LeadData{
		LeadID: lead.ID,
		Email:  lead.Email,
		Name:   lead.Nome,
		Data: map[string]any{
			"nome":     lead.Nome,
			"email":    lead.Email,
			"telefone": lead.Telefone,
			"status":   string(lead.Status),
			"fonte":    lead.Fonte,
		},
	}
}

func (e *Engine) TriggerLeadCapture(ctx context.Context, lead *entity.Lead) (*TriggerResult, error) {
	return e.Trigger(ctx, entity.EventLeadCapture, leadData(lead))
}

// TriggerStatusChange anexa ao resultado os triggers informativos do novo status.
func (e *Engine) TriggerStatusChange(ctx context.Context, lead *entity.Lead, from, to entity.LeadStatus) (*TriggerResult, error) {
	data := leadData(lead)
	data.Data["old_status"] = string(from)
	data.Data["new_status"] = string(to)

	res, err := e.Trigger(ctx, entity.EventStatusChange, data)
	if res != nil {
		res.StatusTriggers = StatusTriggers(to)
	}
	return res, err
}

func (e *Engine) TriggerCartAbandonment(ctx context.Context, data map[string]any) (*TriggerResult, error) {
	return e.Trigger(ctx, entity.EventCartAbandonment, customerData(data))
}

func (e *Engine) TriggerPurchaseCompleted(ctx context.Context, data map[string]any) (*TriggerResult, error) {
	return e.Trigger(ctx, entity.EventPurchaseCompleted, customerData(data))
}

// customerData aceita tanto customer_email/customer_name quanto email/nome.
func customerData(data map[string]any) LeadData {
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := configString(data, k); v != "" {
				return v
			}
		}
		return ""
	}
	return LeadData{
		LeadID: pick("lead_id", "customer_id"),
		Email:  pick("customer_email", "email", "lead_email"),
		Name:   pick("customer_name", "nome", "lead_name"),
		Data:   data,
	}
}
