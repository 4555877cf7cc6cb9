package automation

import (
	"time"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

const (
	SequenceWelcome      = "welcome_7_day"
	SequenceCartRecovery = "cart_recovery"
	SequenceOnboarding   = "onboarding"
)

// DefaultSequences são semeadas no startup quando ausentes do registro.
func DefaultSequences(now time.Time) []entity.AutomationSequence {
	return []entity.AutomationSequence{
		{
			SequenceID:   SequenceWelcome,
			Name:         "Sequência de Boas-vindas (7 dias)",
			TriggerEvent: entity.EventLeadCapture,
			Steps: []entity.Step{
				{
					Type: entity.StepSendEmail,
					Config: map[string]any{
						"template": "welcome_day_0",
						"subject":  "Bem-vindo(a), {{nome}}!",
					},
				},
				{
					Type: entity.StepSendWhatsApp,
					Config: map[string]any{
						"template": "welcome_whatsapp",
						"message":  "Olá {{nome}}! 👋 Obrigado pelo seu interesse. Em breve você receberá mais informações.",
					},
					DelayMinutes: 5,
				},
				{
					Type: entity.StepTrackAnalytics,
					Config: map[string]any{
						"event_name": "WelcomeSequenceStarted",
						"tracking":   map[string]any{"ga4": true, "meta_pixel": true},
					},
				},
			},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			SequenceID:   SequenceCartRecovery,
			Name:         "Recuperação de Carrinho",
			TriggerEvent: entity.EventCartAbandonment,
			Steps: []entity.Step{
				{
					Type:         entity.StepSendEmail,
					Config:       map[string]any{"template": "cart_recovery_1h", "subject": "{{nome}}, você esqueceu algo no carrinho"},
					DelayMinutes: 60,
				},
				{
					Type: entity.StepSendWhatsApp,
					Config: map[string]any{
						"template": "cart_recovery_whatsapp",
						"message":  "Oi {{nome}}, seu carrinho ainda está te esperando! 🛒",
					},
					DelayMinutes: 120,
				},
				{
					Type:         entity.StepSendEmail,
					Config:       map[string]any{"template": "cart_recovery_24h", "subject": "Última chance, {{nome}}"},
					DelayMinutes: 1440,
				},
			},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			SequenceID:   SequenceOnboarding,
			Name:         "Onboarding Pós-compra",
			TriggerEvent: entity.EventPurchaseCompleted,
			Steps: []entity.Step{
				{
					Type:   entity.StepSendEmail,
					Config: map[string]any{"template": "thank_you", "subject": "Obrigado pela compra, {{nome}}!"},
				},
				{
					Type:         entity.StepSendEmail,
					Config:       map[string]any{"template": "onboarding_guide", "subject": "Primeiros passos"},
					DelayMinutes: 1440,
				},
			},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
