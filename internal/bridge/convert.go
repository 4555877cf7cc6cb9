package bridge

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

const (
	SourceLeadStore = "lead_store"
	SourceFileStore = "file_store"

	SyncSourceFromLeadStore = "lead_store_bridge"
	SyncSourceFromFileStore = "file_store_bridge"
)

var ErrConversion = errors.New("erro de conversão")

// timestamps sem fuso são tratados como UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp inválido %q", ErrConversion, s)
}

// ToFileLead converte um lead do Lead Store para o schema do File Store.
// original_id guarda o id primário para permitir remoção via change feed.
func ToFileLead(lead *entity.Lead, now time.Time) (entity.FileLead, error) {
	if lead == nil {
		return entity.FileLead{}, fmt.Errorf("%w: lead nulo", ErrConversion)
	}
	if lead.Email == "" && lead.Telefone == "" {
		return entity.FileLead{}, fmt.Errorf("%w: lead %s sem email e telefone", ErrConversion, lead.ID)
	}

	// sem id primário, o id sai do hash de identidade para ser estável entre passagens
	id := lead.ID
	if id == "" {
		id = LeadHash(entity.FileLead{Email: lead.Email, Telefone: lead.Telefone, Timestamp: FormatTimestamp(lead.Timestamp)})
	}
	ts := lead.Timestamp
	if ts.IsZero() {
		ts = now
	}
	status := string(lead.Status)
	if status == "" {
		status = string(entity.StatusNovo)
	}
	source := lead.Fonte
	if source == "" {
		source = SourceLeadStore
	}

	tsStr := FormatTimestamp(ts)
	return entity.FileLead{
		LeadID:     id,
		Timestamp:  tsStr,
		Nome:       lead.Nome,
		Email:      lead.Email,
		Telefone:   lead.Telefone,
		Status:     status,
		Source:     source,
		Notes:      lead.Notas,
		CreatedAt:  tsStr,
		UpdatedAt:  FormatTimestamp(now),
		SyncSource: SyncSourceFromLeadStore,
		OriginalID: id,
	}, nil
}

// ToLead faz o caminho inverso. Timestamp vazio vira now; inválido é erro.
func ToLead(f entity.FileLead, now time.Time) (*entity.Lead, error) {
	ts := now.UTC()
	if f.Timestamp != "" {
		parsed, err := ParseTimestamp(f.Timestamp)
		if err != nil {
			return nil, err
		}
		ts = parsed
	}

	status := entity.LeadStatus(f.Status)
	if status == "" {
		status = entity.StatusNovo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status desconhecido %q", ErrConversion, f.Status)
	}

	id := f.LeadID
	if id == "" {
		id = uuid.New().String()
	}
	fonte := f.Source
	if fonte == "" {
		fonte = SourceFileStore
	}
	syncSource := f.SyncSource
	if syncSource == "" {
		syncSource = SyncSourceFromFileStore
	}

	return &entity.Lead{
		ID:         id,
		Nome:       f.Nome,
		Email:      f.Email,
		Telefone:   f.Telefone,
		Status:     status,
		Fonte:      fonte,
		Timestamp:  ts,
		Notas:      f.Notes,
		SyncSource: syncSource,
		OriginalID: f.OriginalID,
		UpdatedAt:  now.UTC(),
	}, nil
}

// LeadHash identifica o conteúdo (email, telefone, timestamp) de um registro.
func LeadHash(f entity.FileLead) string {
	sum := md5.Sum([]byte(f.Email + f.Telefone + f.Timestamp))
	return hex.EncodeToString(sum[:])
}
