package usecase

import (
	"time"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type CreateLeadInput struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
	Fonte    string `json:"fonte,omitempty"`
	Notas    string `json:"notas,omitempty"`
}

type CreateLeadOutput struct {
	Lead                *entity.Lead `json:"lead"`
	AutomationTriggered bool         `json:"automation_triggered"`
	SequencesStarted    []string     `json:"sequences_started,omitempty"`
	SyncStatus          string       `json:"sync_status"`
}

// UpdateLeadInput usa ponteiros para distinguir "não enviado" de "vazio".
type UpdateLeadInput struct {
	Status *string `json:"status,omitempty"`
	Notas  *string `json:"notas,omitempty"`
	Fonte  *string `json:"fonte,omitempty"`
}

type UpdateLeadOutput struct {
	Lead          *entity.Lead `json:"lead"`
	StatusChanged bool         `json:"status_changed"`
	Changed       bool         `json:"changed"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOutput struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Admin       *entity.AdminUser `json:"admin"`
}

type RegisterAdminInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
