package surreal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

const LeadsTable = "leads"

// Config de conexão com o SurrealDB.
type Config struct {
	URL       string
	Namespace string
	Database  string
	User      string
	Pass      string
}

// Connect abre a conexão, seleciona namespace/database e autentica.
func Connect(ctx context.Context, cfg Config) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("conectar ao surrealdb: %w", err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("selecionar %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}
	if cfg.User != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{Username: cfg.User, Password: cfg.Pass}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("autenticar no surrealdb: %w", err)
		}
	}
	return db, nil
}

// leadDoc é o formato gravado na tabela leads. Datas vão como texto
// RFC3339 porque o driver não aceita time.Time puro.
type leadDoc struct {
	ID         *models.RecordID `json:"id,omitempty"`
	Nome       string           `json:"nome"`
	Email      string           `json:"email"`
	Telefone   string           `json:"telefone"`
	Status     string           `json:"status"`
	Fonte      string           `json:"fonte"`
	Timestamp  string           `json:"timestamp"`
	Notas      string           `json:"notas"`
	SyncSource string           `json:"sync_source"`
	OriginalID string           `json:"original_id"`
	UpdatedAt  string           `json:"updated_at"`
}

func toDoc(l *entity.Lead) leadDoc {
	return leadDoc{
		Nome:       l.Nome,
		Email:      l.Email,
		Telefone:   l.Telefone,
		Status:     string(l.Status),
		Fonte:      l.Fonte,
		Timestamp:  l.Timestamp.UTC().Format(time.RFC3339Nano),
		Notas:      l.Notas,
		SyncSource: l.SyncSource,
		OriginalID: l.OriginalID,
		UpdatedAt:  l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func recordKey(id *models.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id.ID)
}

// toLead exige timestamp válido; updated_at vazio vira zero.
func (d leadDoc) toLead() (*entity.Lead, error) {
	ts, err := time.Parse(time.RFC3339Nano, d.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("lead %s com timestamp inválido %q: %w", recordKey(d.ID), d.Timestamp, err)
	}
	var upd time.Time
	if d.UpdatedAt != "" {
		if upd, err = time.Parse(time.RFC3339Nano, d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("lead %s com updated_at inválido %q: %w", recordKey(d.ID), d.UpdatedAt, err)
		}
	}
	return &entity.Lead{
		ID:         recordKey(d.ID),
		Nome:       d.Nome,
		Email:      d.Email,
		Telefone:   d.Telefone,
		Status:     entity.LeadStatus(d.Status),
		Fonte:      d.Fonte,
		Timestamp:  ts.UTC(),
		Notas:      d.Notas,
		SyncSource: d.SyncSource,
		OriginalID: d.OriginalID,
		UpdatedAt:  upd.UTC(),
	}, nil
}

// docFromMap converte o registro cru de uma notificação de live query.
func docFromMap(m map[string]any) leadDoc {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	d := leadDoc{
		Nome:       str("nome"),
		Email:      str("email"),
		Telefone:   str("telefone"),
		Status:     str("status"),
		Fonte:      str("fonte"),
		Timestamp:  str("timestamp"),
		Notas:      str("notas"),
		SyncSource: str("sync_source"),
		OriginalID: str("original_id"),
		UpdatedAt:  str("updated_at"),
	}
	switch id := m["id"].(type) {
	case models.RecordID:
		d.ID = &id
	case *models.RecordID:
		d.ID = id
	}
	return d
}

// LeadRepository é o Lead Store padrão, sobre SurrealDB. A chave do registro
// é o id do lead.
type LeadRepository struct {
	db *surrealdb.DB
}

func NewLeadRepository(db *surrealdb.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func rid(id string) models.RecordID {
	return models.NewRecordID(LeadsTable, id)
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	if _, err := surrealdb.Create[leadDoc](ctx, r.db, rid(lead.ID), toDoc(lead)); err != nil {
		return fmt.Errorf("inserir lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	doc, err := surrealdb.Select[leadDoc](ctx, r.db, rid(id))
	if err != nil {
		return nil, fmt.Errorf("buscar lead: %w", err)
	}
	if doc == nil || doc.ID == nil {
		return nil, entity.ErrLeadNotFound
	}
	return doc.toLead()
}

func (r *LeadRepository) query(ctx context.Context, sql string, vars map[string]any) ([]leadDoc, error) {
	res, err := surrealdb.Query[[]leadDoc](ctx, r.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

func (r *LeadRepository) FindByContact(ctx context.Context, email, telefone string) (*entity.Lead, error) {
	docs, err := r.query(ctx,
		"SELECT * FROM type::table($tb) WHERE email = $email AND telefone = $telefone ORDER BY timestamp LIMIT 1",
		map[string]any{"tb": LeadsTable, "email": email, "telefone": telefone})
	if err != nil {
		return nil, fmt.Errorf("buscar lead por contato: %w", err)
	}
	if len(docs) == 0 {
		return nil, entity.ErrLeadNotFound
	}
	return docs[0].toLead()
}

func (r *LeadRepository) List(ctx context.Context) ([]*entity.Lead, error) {
	docs, err := r.query(ctx, "SELECT * FROM type::table($tb)", map[string]any{"tb": LeadsTable})
	if err != nil {
		return nil, fmt.Errorf("listar leads: %w", err)
	}

	out := make([]*entity.Lead, 0, len(docs))
	for _, d := range docs {
		lead, err := d.toLead()
		if err != nil {
			return nil, fmt.Errorf("listar leads: %w", err)
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	docs, err := r.query(ctx, "UPDATE $rid CONTENT $doc", map[string]any{
		"rid": rid(lead.ID),
		"doc": toDoc(lead),
	})
	if err != nil {
		return fmt.Errorf("atualizar lead: %w", err)
	}
	if len(docs) == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

type countRow struct {
	Status string `json:"status"`
	N      int    `json:"n"`
}

func (r *LeadRepository) Count(ctx context.Context) (int, error) {
	res, err := surrealdb.Query[[]countRow](ctx, r.db,
		"SELECT count() AS n FROM type::table($tb) GROUP ALL", map[string]any{"tb": LeadsTable})
	if err != nil {
		return 0, fmt.Errorf("contar leads: %w", err)
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return 0, nil
	}
	return (*res)[0].Result[0].N, nil
}

func (r *LeadRepository) CountByStatus(ctx context.Context) (map[entity.LeadStatus]int, error) {
	res, err := surrealdb.Query[[]countRow](ctx, r.db,
		"SELECT status, count() AS n FROM type::table($tb) GROUP BY status", map[string]any{"tb": LeadsTable})
	if err != nil {
		return nil, fmt.Errorf("contar leads por status: %w", err)
	}
	out := make(map[entity.LeadStatus]int)
	if res == nil || len(*res) == 0 {
		return out, nil
	}
	for _, row := range (*res)[0].Result {
		out[entity.LeadStatus(row.Status)] = row.N
	}
	return out, nil
}

func (r *LeadRepository) Ping(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, r.db, "RETURN true", nil)
	return err
}

var errUnsupportedNotification = errors.New("notificação não suportada")

// changeFromNotification traduz uma notificação de live query em LeadChange.
func changeFromNotification(n connection.Notification) (entity.LeadChange, error) {
	record, ok := n.Result.(map[string]any)
	if !ok {
		return entity.LeadChange{}, errUnsupportedNotification
	}
	doc := docFromMap(record)
	change := entity.LeadChange{LeadID: recordKey(doc.ID)}

	switch n.Action {
	case connection.CreateAction:
		change.Op = entity.ChangeInsert
	case connection.UpdateAction:
		change.Op = entity.ChangeUpdate
	case connection.DeleteAction:
		change.Op = entity.ChangeDelete
		if change.LeadID == "" {
			return entity.LeadChange{}, errUnsupportedNotification
		}
		return change, nil
	default:
		return entity.LeadChange{}, errUnsupportedNotification
	}

	lead, err := doc.toLead()
	if err != nil {
		return entity.LeadChange{}, err
	}
	change.Lead = lead
	return change, nil
}

// Watch abre uma live query na tabela de leads e entrega cada mudança a fn.
// O live query é encerrado quando ctx termina.
func (r *LeadRepository) Watch(ctx context.Context, fn func(entity.LeadChange)) error {
	logger := log.With().Str("component", "surreal_watch").Logger()

	live, err := surrealdb.Live(ctx, r.db, LeadsTable, false)
	if err != nil {
		return fmt.Errorf("iniciar live query: %w", err)
	}
	liveID := live.String()
	defer func() {
		if err := surrealdb.Kill(context.WithoutCancel(ctx), r.db, liveID); err != nil {
			logger.Warn().Err(err).Msg("⚠️ Falha ao encerrar live query")
		}
	}()

	notifications, err := r.db.LiveNotifications(liveID)
	if err != nil {
		return fmt.Errorf("canal de notificações: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return errors.New("canal de live query fechado")
			}
			change, err := changeFromNotification(n)
			if err != nil {
				logger.Warn().Err(err).Str("action", string(n.Action)).Msg("⚠️ Notificação ignorada")
				continue
			}
			fn(change)
		}
	}
}

var _ entity.LeadRepositoryInterface = (*LeadRepository)(nil)
