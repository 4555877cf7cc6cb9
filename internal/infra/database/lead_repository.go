package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

const leadColumns = `id, nome, email, telefone, status, fonte, captured_at, notas, sync_source, original_id, updated_at`

// LeadRepository é o Lead Store sobre Postgres. O change feed usa
// LISTEN/NOTIFY, por isso guarda a connection string além do *sql.DB.
type LeadRepository struct {
	DB         *sql.DB
	ConnString string

	newListener listenerFactory
}

func NewLeadRepository(db *sql.DB, connString string) *LeadRepository {
	return &LeadRepository{DB: db, ConnString: connString, newListener: pqListener}
}

// changeListener é o subconjunto de *pq.Listener usado pelo Watch.
type changeListener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type listenerFactory func(connString string, onEvent pq.EventCallbackType) changeListener

func pqListener(connString string, onEvent pq.EventCallbackType) changeListener {
	return pq.NewListener(connString, 10*time.Second, time.Minute, onEvent)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l      entity.Lead
		status string
	)
	err := row.Scan(&l.ID, &l.Nome, &l.Email, &l.Telefone, &status, &l.Fonte,
		&l.Timestamp, &l.Notas, &l.SyncSource, &l.OriginalID, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LeadStatus(status)
	l.Timestamp = l.Timestamp.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Nome,
		lead.Email,
		lead.Telefone,
		string(lead.Status),
		lead.Fonte,
		lead.Timestamp,
		lead.Notas,
		lead.SyncSource,
		lead.OriginalID,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserir lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	return lead, err
}

func (r *LeadRepository) FindByContact(ctx context.Context, email, telefone string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = $1 AND telefone = $2 ORDER BY captured_at LIMIT 1`,
		email, telefone)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	return lead, err
}

func (r *LeadRepository) List(ctx context.Context) ([]*entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY captured_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listar leads: %w", err)
	}
	defer rows.Close()

	var out []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	query := `UPDATE leads SET nome = $2, email = $3, telefone = $4, status = $5, fonte = $6,
		captured_at = $7, notas = $8, sync_source = $9, original_id = $10, updated_at = $11
		WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Nome,
		lead.Email,
		lead.Telefone,
		string(lead.Status),
		lead.Fonte,
		lead.Timestamp,
		lead.Notas,
		lead.SyncSource,
		lead.OriginalID,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("atualizar lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n)
	return n, err
}

func (r *LeadRepository) CountByStatus(ctx context.Context) (map[entity.LeadStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[entity.LeadStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[entity.LeadStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *LeadRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

type notifyPayload struct {
	Op   string       `json:"op"`
	ID   string       `json:"id"`
	Lead *entity.Lead `json:"lead"`
}

// decodeNotification traduz o payload do trigger notify_lead_change.
func decodeNotification(extra string) (entity.LeadChange, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(extra), &p); err != nil {
		return entity.LeadChange{}, fmt.Errorf("payload de notify inválido: %w", err)
	}
	if p.Lead != nil {
		p.Lead.Timestamp = p.Lead.Timestamp.UTC()
		p.Lead.UpdatedAt = p.Lead.UpdatedAt.UTC()
	}
	return entity.LeadChange{Op: entity.ChangeOp(p.Op), LeadID: p.ID, Lead: p.Lead}, nil
}

// Watch escuta o canal lead_changes até ctx ser cancelado. Queda de
// conexão encerra o Watch com erro, sem reconexão.
func (r *LeadRepository) Watch(ctx context.Context, fn func(entity.LeadChange)) error {
	logger := log.With().Str("component", "postgres_watch").Logger()

	factory := r.newListener
	if factory == nil {
		factory = pqListener
	}

	feedErr := make(chan error, 1)
	listener := factory(r.ConnString, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			if err == nil {
				err = errors.New("conexão do listener perdida")
			}
			select {
			case feedErr <- err:
			default:
			}
		}
	})
	defer listener.Close()

	if err := listener.Listen(LeadChangesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", LeadChangesChannel, err)
	}

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-feedErr:
			return fmt.Errorf("change feed do postgres: %w", err)
		case n, ok := <-listener.NotificationChannel():
			if !ok {
				return errors.New("change feed do postgres encerrado")
			}
			// nil só chega após reconexão: notificações podem ter se perdido
			if n == nil {
				return errors.New("change feed do postgres reconectou com lacuna")
			}
			change, err := decodeNotification(n.Extra)
			if err != nil {
				logger.Error().Err(err).Msg("❌ Notificação descartada")
				continue
			}
			fn(change)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				return fmt.Errorf("ping do listener: %w", err)
			}
		}
	}
}

var _ entity.LeadRepositoryInterface = (*LeadRepository)(nil)
