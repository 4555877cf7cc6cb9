package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

const DefaultLeadSource = "landing_page"

type CreateLeadUseCase struct {
	Repo       entity.LeadRepositoryInterface
	Automation LeadEventTrigger
	Sync       *BackgroundSync
	Now        func() time.Time
}

func NewCreateLeadUseCase(
	repo entity.LeadRepositoryInterface,
	automation LeadEventTrigger,
	sync *BackgroundSync,
) *CreateLeadUseCase {
	return &CreateLeadUseCase{
		Repo:       repo,
		Automation: automation,
		Sync:       sync,
		Now:        time.Now,
	}
}

func (uc *CreateLeadUseCase) Execute(ctx context.Context, input CreateLeadInput) (*CreateLeadOutput, error) {
	if errs := ValidateCreateLeadInput(input); len(errs) > 0 {
		return nil, NewDomainError(CodeValidation, errs.Error())
	}

	now := uc.Now().UTC()
	fonte := strings.TrimSpace(input.Fonte)
	if fonte == "" {
		fonte = DefaultLeadSource
	}

	lead := &entity.Lead{
		ID:        uuid.New().String(),
		Nome:      strings.TrimSpace(input.Nome),
		Email:     strings.TrimSpace(input.Email),
		Telefone:  strings.TrimSpace(input.Telefone),
		Status:    entity.StatusNovo,
		Fonte:     fonte,
		Timestamp: now,
		Notas:     input.Notas,
		UpdatedAt: now,
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		return nil, NewUpstreamError("erro ao salvar lead", err)
	}

	out := &CreateLeadOutput{Lead: lead}

	// automação é fire-and-continue: falha não derruba a captura
	if uc.Automation != nil {
		res, err := uc.Automation.TriggerLeadCapture(ctx, lead)
		if err != nil {
			log.Warn().Err(err).Str("lead_id", lead.ID).Str("email", logger.MaskEmail(lead.Email)).
				Msg("⚠️ Automação lead_capture falhou")
		}
		if res != nil {
			out.AutomationTriggered = true
			for _, inst := range res.Instances {
				out.SequencesStarted = append(out.SequencesStarted, inst.SequenceID)
			}
		}
	}

	out.SyncStatus = uc.Sync.Schedule(ctx, "lead_created")

	log.Info().Str("lead_id", lead.ID).Str("email", logger.MaskEmail(lead.Email)).Msg("✅ Lead capturado")
	return out, nil
}
