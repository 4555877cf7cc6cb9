package entity

import (
	"context"
	"errors"
	"time"
)

var ErrLeadNotFound = errors.New("lead não encontrado")

type LeadStatus string

const (
	StatusNovo        LeadStatus = "novo"
	StatusContatado   LeadStatus = "contatado"
	StatusQualificado LeadStatus = "qualificado"
	StatusVendido     LeadStatus = "vendido"
	StatusPerdido     LeadStatus = "perdido"
)

var validStatuses = map[LeadStatus]bool{
	StatusNovo:        true,
	StatusContatado:   true,
	StatusQualificado: true,
	StatusVendido:     true,
	StatusPerdido:     true,
}

func (s LeadStatus) Valid() bool {
	return validStatuses[s]
}

func AllStatuses() []LeadStatus {
	return []LeadStatus{StatusNovo, StatusContatado, StatusQualificado, StatusVendido, StatusPerdido}
}

// Lead é o registro autoritativo do Lead Store.
type Lead struct {
	ID         string     `json:"id"`
	Nome       string     `json:"nome"`
	Email      string     `json:"email"`
	Telefone   string     `json:"telefone"`
	Status     LeadStatus `json:"status"`
	Fonte      string     `json:"fonte"`
	Timestamp  time.Time  `json:"timestamp"`
	Notas      string     `json:"notas,omitempty"`
	SyncSource string     `json:"sync_source,omitempty"`
	OriginalID string     `json:"original_id,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ContactKey identifica o lead entre os dois stores.
type ContactKey struct {
	Email    string
	Telefone string
}

func (l *Lead) ContactKey() ContactKey {
	return ContactKey{Email: l.Email, Telefone: l.Telefone}
}

type ChangeOp string

const (
	ChangeInsert  ChangeOp = "insert"
	ChangeUpdate  ChangeOp = "update"
	ChangeReplace ChangeOp = "replace"
	ChangeDelete  ChangeOp = "delete"
)

// LeadChange é um evento do change feed do Lead Store. Em deletes, Lead pode
// vir nil; LeadID sempre vem preenchido.
type LeadChange struct {
	Op     ChangeOp
	LeadID string
	Lead   *Lead
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByContact(ctx context.Context, email, telefone string) (*Lead, error)
	List(ctx context.Context) ([]*Lead, error)
	Update(ctx context.Context, lead *Lead) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[LeadStatus]int, error)
	// Watch bloqueia até ctx ser cancelado ou o feed falhar.
	Watch(ctx context.Context, fn func(LeadChange)) error
	Ping(ctx context.Context) error
}
