package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

var ErrSyncBusy = errors.New("sync em andamento em outra instância")

const (
	DirectionPrimaryToSecondary = "primary_to_secondary"
	DirectionSecondaryToPrimary = "secondary_to_primary"
	DirectionBidirectional      = "bidirectional"
)

// FileStore guarda a projeção inteira; Save sobrescreve tudo.
type FileStore interface {
	Load(ctx context.Context) ([]entity.FileLead, error)
	Save(ctx context.Context, leads []entity.FileLead) error
}

// Locker é um lock distribuído opcional entre processos.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type SyncStats struct {
	TotalLeads   int `json:"total_leads"`
	NewLeads     int `json:"new_leads"`
	UpdatedLeads int `json:"updated_leads"`
	Inserted     int `json:"inserted"`
	Updated      int `json:"updated"`
	Errors       int `json:"errors"`
}

type SyncResult struct {
	Success   bool      `json:"success"`
	Direction string    `json:"direction"`
	Message   string    `json:"message,omitempty"`
	Stats     SyncStats `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
}

type BidirectionalResult struct {
	Success            bool        `json:"success"`
	PrimaryToSecondary *SyncResult `json:"primary_to_secondary"`
	SecondaryToPrimary *SyncResult `json:"secondary_to_primary"`
	Timestamp          time.Time   `json:"timestamp"`
}

type Status struct {
	LeadStoreLeads int        `json:"lead_store_leads"`
	FileStoreLeads int        `json:"file_store_leads"`
	CacheSize      int        `json:"cache_size"`
	LastSync       *time.Time `json:"last_sync"`
	SyncNeeded     bool       `json:"sync_needed"`
}

// Bridge reconcilia o Lead Store (primário) com o File Store (projeção).
type Bridge struct {
	primary    entity.LeadRepositoryInterface
	projection FileStore
	inbound    FileStore
	cache      *SyncCache
	lock       Locker
	now        func() time.Time
	logger     zerolog.Logger

	// mu serializa as passagens; projMu guarda o read-modify-write da
	// projeção. Quem grava no Lead Store nunca segura projMu.
	mu       sync.Mutex
	projMu   sync.Mutex
	stateMu  sync.Mutex
	lastSync *time.Time
}

type Option func(*Bridge)

// WithImportStore define o arquivo lido pelo sync secundário→primário.
func WithImportStore(fs FileStore) Option {
	return func(b *Bridge) { b.inbound = fs }
}

func WithLocker(l Locker) Option {
	return func(b *Bridge) { b.lock = l }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// New valida a conectividade com o Lead Store; falha aqui é fatal.
func New(ctx context.Context, primary entity.LeadRepositoryInterface, projection FileStore, opts ...Option) (*Bridge, error) {
	if primary == nil || projection == nil {
		return nil, errors.New("bridge: lead store e file store são obrigatórios")
	}
	if err := primary.Ping(ctx); err != nil {
		return nil, fmt.Errorf("bridge: lead store indisponível: %w", err)
	}

	b := &Bridge{
		primary:    primary,
		projection: projection,
		cache:      NewSyncCache(),
		now:        time.Now,
		logger:     log.With().Str("component", "bridge").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.inbound == nil {
		b.inbound = projection
	}
	return b, nil
}

func (b *Bridge) withLock(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lock != nil {
		ok, err := b.lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSyncBusy
		}
		defer func() {
			if err := b.lock.Release(context.WithoutCancel(ctx)); err != nil {
				b.logger.Warn().Err(err).Msg("⚠️ Falha ao liberar lock de sync")
			}
		}()
	}
	return fn()
}

func (b *Bridge) markSynced(at time.Time) {
	t := at
	b.stateMu.Lock()
	b.lastSync = &t
	b.stateMu.Unlock()
}

func (b *Bridge) SyncPrimaryToSecondary(ctx context.Context) (*SyncResult, error) {
	var res *SyncResult
	err := b.withLock(ctx, func() error {
		var err error
		res, err = b.syncPrimaryToSecondary(ctx)
		return err
	})
	recordSync(DirectionPrimaryToSecondary, err)
	return res, err
}

func (b *Bridge) syncPrimaryToSecondary(ctx context.Context) (*SyncResult, error) {
	now := b.now().UTC()
	res := &SyncResult{Direction: DirectionPrimaryToSecondary, Timestamp: now}

	b.projMu.Lock()
	defer b.projMu.Unlock()

	leads, err := b.primary.List(ctx)
	if err != nil {
		res.Message = "erro ao ler lead store"
		return res, fmt.Errorf("listar leads: %w", err)
	}

	sort.SliceStable(leads, func(i, j int) bool {
		if !leads[i].Timestamp.Equal(leads[j].Timestamp) {
			return leads[i].Timestamp.Before(leads[j].Timestamp)
		}
		return leads[i].ID < leads[j].ID
	})

	out := make([]entity.FileLead, 0, len(leads))
	for _, lead := range leads {
		res.Stats.TotalLeads++

		fl, err := ToFileLead(lead, now)
		if err != nil {
			res.Stats.Errors++
			b.logger.Warn().Err(err).Str("lead_id", lead.ID).Msg("⚠️ Lead ignorado na projeção")
			continue
		}

		if b.cache.Observe(LeadHash(fl), fl.LeadID) {
			res.Stats.NewLeads++
		} else {
			res.Stats.UpdatedLeads++
		}
		out = append(out, fl)
	}

	if err := b.projection.Save(ctx, out); err != nil {
		res.Message = "erro ao gravar file store"
		return res, fmt.Errorf("gravar projeção: %w", err)
	}

	res.Success = true
	b.markSynced(now)
	recordRecords(DirectionPrimaryToSecondary, res.Stats)

	b.logger.Info().
		Int("total", res.Stats.TotalLeads).
		Int("new", res.Stats.NewLeads).
		Int("updated", res.Stats.UpdatedLeads).
		Int("errors", res.Stats.Errors).
		Msg("✅ Sync primário → secundário concluído")
	return res, nil
}

func (b *Bridge) SyncSecondaryToPrimary(ctx context.Context) (*SyncResult, error) {
	var res *SyncResult
	err := b.withLock(ctx, func() error {
		var err error
		res, err = b.syncSecondaryToPrimary(ctx)
		return err
	})
	recordSync(DirectionSecondaryToPrimary, err)
	return res, err
}

func (b *Bridge) syncSecondaryToPrimary(ctx context.Context) (*SyncResult, error) {
	now := b.now().UTC()
	res := &SyncResult{Direction: DirectionSecondaryToPrimary, Timestamp: now}

	records, err := b.inbound.Load(ctx)
	if err != nil {
		if errors.Is(err, entity.ErrFileNotFound) {
			res.Success = true
			res.Message = "arquivo de importação não encontrado"
			return res, nil
		}
		res.Message = "erro ao ler file store"
		return res, fmt.Errorf("ler arquivo de importação: %w", err)
	}

	for _, rec := range records {
		res.Stats.TotalLeads++

		incoming, err := ToLead(rec, now)
		if err != nil {
			res.Stats.Errors++
			b.logger.Warn().Err(err).Str("lead_id", rec.LeadID).Msg("⚠️ Registro ignorado na importação")
			continue
		}

		existing, err := b.primary.FindByContact(ctx, incoming.Email, incoming.Telefone)
		switch {
		case errors.Is(err, entity.ErrLeadNotFound):
			if err := b.primary.Create(ctx, incoming); err != nil {
				res.Stats.Errors++
				b.logger.Error().Err(err).Str("lead_id", incoming.ID).Msg("❌ Falha ao inserir lead importado")
				continue
			}
			res.Stats.Inserted++
		case err != nil:
			res.Stats.Errors++
			b.logger.Error().Err(err).Msg("❌ Falha ao buscar lead por contato")
		default:
			if !mergeInto(existing, incoming) {
				continue
			}
			existing.UpdatedAt = now
			if err := b.primary.Update(ctx, existing); err != nil {
				res.Stats.Errors++
				b.logger.Error().Err(err).Str("lead_id", existing.ID).Msg("❌ Falha ao atualizar lead importado")
				continue
			}
			res.Stats.Updated++
		}
	}

	res.Success = true
	b.markSynced(now)
	recordRecords(DirectionSecondaryToPrimary, res.Stats)

	b.logger.Info().
		Int("total", res.Stats.TotalLeads).
		Int("inserted", res.Stats.Inserted).
		Int("updated", res.Stats.Updated).
		Int("errors", res.Stats.Errors).
		Msg("✅ Sync secundário → primário concluído")
	return res, nil
}

// mergeInto copia os campos vindos do arquivo mantendo o id primário.
// Devolve false quando nada muda.
func mergeInto(dst, src *entity.Lead) bool {
	changed := dst.Nome != src.Nome ||
		dst.Status != src.Status ||
		dst.Fonte != src.Fonte ||
		!dst.Timestamp.Equal(src.Timestamp) ||
		dst.Notas != src.Notas ||
		dst.SyncSource != src.SyncSource ||
		dst.OriginalID != src.OriginalID
	if !changed {
		return false
	}
	dst.Nome = src.Nome
	dst.Status = src.Status
	dst.Fonte = src.Fonte
	dst.Timestamp = src.Timestamp
	dst.Notas = src.Notas
	dst.SyncSource = src.SyncSource
	dst.OriginalID = src.OriginalID
	return true
}

// Bidirectional roda primário→secundário e depois secundário→primário.
func (b *Bridge) Bidirectional(ctx context.Context) (*BidirectionalResult, error) {
	out := &BidirectionalResult{Timestamp: b.now().UTC()}

	p2s, errP2S := b.SyncPrimaryToSecondary(ctx)
	out.PrimaryToSecondary = p2s

	s2p, errS2P := b.SyncSecondaryToPrimary(ctx)
	out.SecondaryToPrimary = s2p

	out.Success = errP2S == nil && errS2P == nil &&
		p2s != nil && p2s.Success && s2p != nil && s2p.Success
	return out, errors.Join(errP2S, errS2P)
}

// ForceFullSync limpa o cache e roda o sync bidirecional.
func (b *Bridge) ForceFullSync(ctx context.Context) (*BidirectionalResult, error) {
	b.cache.Clear()
	b.logger.Info().Msg("🔄 Cache de sync limpo, iniciando sync completo")
	return b.Bidirectional(ctx)
}

func (b *Bridge) Status(ctx context.Context) (*Status, error) {
	total, err := b.primary.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("contar leads: %w", err)
	}

	records, err := b.projection.Load(ctx)
	if err != nil && !errors.Is(err, entity.ErrFileNotFound) {
		return nil, fmt.Errorf("ler projeção: %w", err)
	}

	b.stateMu.Lock()
	last := b.lastSync
	b.stateMu.Unlock()

	return &Status{
		LeadStoreLeads: total,
		FileStoreLeads: len(records),
		CacheSize:      b.cache.Len(),
		LastSync:       last,
		SyncNeeded:     total != len(records),
	}, nil
}

// Watch replica o change feed do Lead Store na projeção até ctx ser
// cancelado. Erro do feed encerra o loop e é devolvido sem retry.
func (b *Bridge) Watch(ctx context.Context) error {
	b.logger.Info().Msg("👀 Watch do lead store iniciado")
	err := b.primary.Watch(ctx, func(change entity.LeadChange) {
		if err := b.applyChange(ctx, change); err != nil {
			b.logger.Error().Err(err).Str("op", string(change.Op)).Str("lead_id", change.LeadID).
				Msg("❌ Falha ao aplicar mudança na projeção")
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	b.logger.Info().Msg("⚠️ Watch do lead store encerrado")
	return nil
}

func (b *Bridge) applyChange(ctx context.Context, change entity.LeadChange) error {
	b.projMu.Lock()
	defer b.projMu.Unlock()

	records, err := b.projection.Load(ctx)
	if err != nil && !errors.Is(err, entity.ErrFileNotFound) {
		return err
	}

	switch change.Op {
	case entity.ChangeInsert, entity.ChangeUpdate, entity.ChangeReplace:
		fl, err := ToFileLead(change.Lead, b.now().UTC())
		if err != nil {
			return err
		}
		key := fl.ContactKey()
		replaced := false
		for i := range records {
			if records[i].ContactKey() == key {
				records[i] = fl
				replaced = true
				break
			}
		}
		if !replaced {
			records = append(records, fl)
		}

	case entity.ChangeDelete:
		kept := records[:0]
		for _, r := range records {
			if r.OriginalID != change.LeadID {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(records) {
			return nil
		}
		records = kept

	default:
		return fmt.Errorf("operação desconhecida: %s", change.Op)
	}

	watchChanges.WithLabelValues(string(change.Op)).Inc()
	return b.projection.Save(ctx, records)
}
