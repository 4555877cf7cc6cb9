package entity

import "errors"

// FileLead é a projeção do lead no File Store.
type FileLead struct {
	LeadID     string `json:"lead_id"`
	Timestamp  string `json:"timestamp"`
	Nome       string `json:"nome"`
	Email      string `json:"email"`
	Telefone   string `json:"telefone"`
	Status     string `json:"status"`
	Source     string `json:"source"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	SyncSource string `json:"sync_source"`
	OriginalID string `json:"original_id"`
}

func (f *FileLead) ContactKey() ContactKey {
	return ContactKey{Email: f.Email, Telefone: f.Telefone}
}

var ErrFileNotFound = errors.New("arquivo não encontrado")
