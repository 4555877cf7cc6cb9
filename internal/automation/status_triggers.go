package automation

import "github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"

// statusTriggers é apenas informativo: a seleção de sequências usa o tipo do
// evento, não esta tabela. Os nomes aqui não correspondem a sequências do
// registro.
var statusTriggers = map[entity.LeadStatus][]string{
	entity.StatusNovo:        {"welcome_sequence"},
	entity.StatusContatado:   {"follow_up_24h"},
	entity.StatusQualificado: {"sales_sequence"},
	entity.StatusVendido:     {"onboarding_sequence"},
	entity.StatusPerdido:     {"winback_sequence"},
}

func StatusTriggers(status entity.LeadStatus) []string {
	return append([]string(nil), statusTriggers[status]...)
}
