package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type UpdateLeadUseCase struct {
	Repo       entity.LeadRepositoryInterface
	Automation LeadEventTrigger
	Sync       *BackgroundSync
	Now        func() time.Time
}

func NewUpdateLeadUseCase(
	repo entity.LeadRepositoryInterface,
	automation LeadEventTrigger,
	sync *BackgroundSync,
) *UpdateLeadUseCase {
	return &UpdateLeadUseCase{
		Repo:       repo,
		Automation: automation,
		Sync:       sync,
		Now:        time.Now,
	}
}

// Execute aplica a atualização parcial. Um lead inexistente devolve NOT_FOUND
// antes de qualquer escrita ou trigger. Se nada mudar, o lead volta intacto.
func (uc *UpdateLeadUseCase) Execute(ctx context.Context, id string, input UpdateLeadInput) (*UpdateLeadOutput, error) {
	if errs := ValidateUpdateLeadInput(input); len(errs) > 0 {
		return nil, NewDomainError(CodeValidation, errs.Error())
	}

	lead, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, NewDomainError(CodeNotFound, "Lead não encontrado")
		}
		return nil, NewUpstreamError("erro ao buscar lead", err)
	}

	oldStatus := lead.Status
	changed := false

	if input.Status != nil && entity.LeadStatus(*input.Status) != lead.Status {
		lead.Status = entity.LeadStatus(*input.Status)
		changed = true
	}
	if input.Notas != nil && *input.Notas != lead.Notas {
		lead.Notas = *input.Notas
		changed = true
	}
	if input.Fonte != nil {
		if fonte := strings.TrimSpace(*input.Fonte); fonte != "" && fonte != lead.Fonte {
			lead.Fonte = fonte
			changed = true
		}
	}

	out := &UpdateLeadOutput{Lead: lead, Changed: changed}
	if !changed {
		return out, nil
	}

	lead.UpdatedAt = uc.Now().UTC()
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, NewUpstreamError("erro ao atualizar lead", err)
	}

	if lead.Status != oldStatus {
		out.StatusChanged = true
		if uc.Automation != nil {
			if _, err := uc.Automation.TriggerStatusChange(ctx, lead, oldStatus, lead.Status); err != nil {
				log.Warn().Err(err).Str("lead_id", lead.ID).Msg("⚠️ Automação status_change falhou")
			}
		}
	}

	uc.Sync.Schedule(ctx, "lead_updated")

	log.Info().Str("lead_id", lead.ID).Str("status", string(lead.Status)).Msg("✏️ Lead atualizado")
	return out, nil
}
