package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

var (
	ErrUnknownEvent     = errors.New("tipo de evento desconhecido")
	ErrInstanceNotFound = errors.New("instância não encontrada")
)

// Locker evita que duas réplicas rodem o Tick ao mesmo tempo.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type LeadData struct {
	LeadID string
	Email  string
	Name   string
	Data   map[string]any
}

type TriggerResult struct {
	EventID        string                     `json:"event_id"`
	EventType      entity.EventType           `json:"event_type"`
	Status         entity.EventStatus         `json:"status"`
	Instances      []*entity.SequenceInstance `json:"instances"`
	StatusTriggers []string                   `json:"status_triggers,omitempty"`
	Errors         []string                   `json:"errors,omitempty"`
}

type Status struct {
	ActiveSequences    int               `json:"active_sequences"`
	TotalSequences     int               `json:"total_sequences"`
	PendingInstances   int               `json:"pending_instances"`
	RunningInstances   int               `json:"running_instances"`
	CompletedInstances int               `json:"completed_instances"`
	ErrorInstances     int               `json:"error_instances"`
	EventQueueSize     int               `json:"event_queue_size"`
	EventsProcessed    int               `json:"events_processed"`
	Channels           map[string]string `json:"channels"`
}

// Engine executa sequências de automação. O progresso de cada instância é
// persistido no Store; esperas viram next_run_at e são retomadas pelo Tick.
type Engine struct {
	store     Store
	channels  Channels
	renderer  *Renderer
	queue     *EventQueue
	publisher Publisher
	locker    Locker
	now       func() time.Time
	logger    zerolog.Logger

	// serializa o avanço de instâncias entre Trigger e Tick
	mu sync.Mutex

	idMu      sync.Mutex
	lastNanos int64
}

type Option func(*Engine)

func WithChannels(c Channels) Option {
	return func(e *Engine) { e.channels = c }
}

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		renderer: NewRenderer(),
		queue:    NewEventQueue(),
		now:      time.Now,
		logger:   log.With().Str("component", "automation").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SeedDefaults adiciona as sequências padrão que ainda não existem no registro.
func (e *Engine) SeedDefaults(ctx context.Context) (int, error) {
	seqs, err := e.store.LoadSequences(ctx)
	if err != nil {
		return 0, fmt.Errorf("carregar sequências: %w", err)
	}

	existing := make(map[string]bool, len(seqs))
	for _, s := range seqs {
		existing[s.SequenceID] = true
	}

	added := 0
	for _, def := range DefaultSequences(e.now().UTC()) {
		if existing[def.SequenceID] {
			continue
		}
		seqs = append(seqs, def)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := e.store.SaveSequences(ctx, seqs); err != nil {
		return 0, fmt.Errorf("salvar sequências: %w", err)
	}
	e.logger.Info().Int("added", added).Msg("🌱 Sequências padrão carregadas")
	return added, nil
}

func (e *Engine) Sequences(ctx context.Context) ([]entity.AutomationSequence, error) {
	return e.store.LoadSequences(ctx)
}

func (e *Engine) Instances(ctx context.Context) ([]*entity.SequenceInstance, error) {
	return e.store.ListInstances(ctx)
}

// nextEventNanos devolve um valor estritamente crescente: dois disparos no
// mesmo tick do relógio não podem gerar o mesmo event_id.
func (e *Engine) nextEventNanos(now time.Time) int64 {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	n := now.UnixNano()
	if n <= e.lastNanos {
		n = e.lastNanos + 1
	}
	e.lastNanos = n
	return n
}

func (e *Engine) newEvent(eventType entity.EventType, lead LeadData) entity.AutomationEvent {
	now := e.now().UTC()
	data := make(map[string]any, len(lead.Data))
	for k, v := range lead.Data {
		data[k] = v
	}
	return entity.AutomationEvent{
		EventID:   string(eventType) + "_" + strconv.FormatInt(e.nextEventNanos(now), 10),
		EventType: eventType,
		LeadID:    lead.LeadID,
		LeadEmail: lead.Email,
		LeadName:  lead.Name,
		Timestamp: now,
		Data:      data,
		Status:    entity.EventPending,
	}
}

// Trigger cria o evento, processa as sequências que casam e devolve o
// resultado. Passos com espera ficam agendados, a chamada não bloqueia.
func (e *Engine) Trigger(ctx context.Context, eventType entity.EventType, lead LeadData) (*TriggerResult, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventType)
	}

	event := e.newEvent(eventType, lead)
	eventsTotal.WithLabelValues(string(eventType)).Inc()

	e.queue.Push(event)
	defer e.queue.Done(event.EventID)

	if e.publisher != nil {
		if err := e.publisher.PublishEvent(ctx, event); err != nil {
			e.logger.Warn().Err(err).Str("event_id", event.EventID).Msg("⚠️ Falha ao publicar evento")
		}
	}

	instances, err := e.ProcessEvent(ctx, &event)

	res := &TriggerResult{
		EventID:   event.EventID,
		EventType: event.EventType,
		Status:    event.Status,
		Instances: instances,
	}
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	return res, err
}

// ProcessEvent roda cada sequência ativa do tipo do evento, em ordem. Erro em
// uma sequência não impede as demais.
func (e *Engine) ProcessEvent(ctx context.Context, event *entity.AutomationEvent) ([]*entity.SequenceInstance, error) {
	event.Status = entity.EventRunning

	seqs, err := e.store.LoadSequences(ctx)
	if err != nil {
		event.Status = entity.EventError
		return nil, fmt.Errorf("carregar sequências: %w", err)
	}

	var (
		instances []*entity.SequenceInstance
		errs      []error
	)
	for i := range seqs {
		seq := seqs[i]
		if !seq.Active || seq.TriggerEvent != event.EventType {
			continue
		}
		inst, err := e.ExecuteSequence(ctx, seq, *event)
		if inst != nil {
			instances = append(instances, inst)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	joined := errors.Join(errs...)
	if joined != nil {
		event.Status = entity.EventError
	} else {
		event.Status = entity.EventCompleted
	}

	e.logger.Info().
		Str("event_id", event.EventID).
		Str("event_type", string(event.EventType)).
		Int("sequences", len(instances)).
		Msg("⚙️ Evento processado")
	return instances, joined
}

// ExecuteSequence cria e persiste a instância e executa os passos até a
// primeira espera.
func (e *Engine) ExecuteSequence(ctx context.Context, seq entity.AutomationSequence, event entity.AutomationEvent) (*entity.SequenceInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	event.SequenceID = seq.SequenceID
	inst := &entity.SequenceInstance{
		InstanceID: seq.SequenceID + "_" + event.EventID,
		SequenceID: seq.SequenceID,
		Event:      event,
		StepsTotal: len(seq.Steps),
		Status:     entity.InstancePending,
		StartedAt:  e.now().UTC(),
	}
	if err := e.store.SaveInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("salvar instância %s: %w", inst.InstanceID, err)
	}

	e.logger.Info().Str("instance_id", inst.InstanceID).Int("steps", inst.StepsTotal).Msg("🚀 Sequência iniciada")
	return inst, e.advance(ctx, seq, inst)
}

// advance executa passos a partir de steps_completed. Deve ser chamado com e.mu.
func (e *Engine) advance(ctx context.Context, seq entity.AutomationSequence, inst *entity.SequenceInstance) error {
	inst.Status = entity.InstanceRunning
	inst.NextRunAt = nil

	for inst.StepsCompleted < len(seq.Steps) {
		step := seq.Steps[inst.StepsCompleted]

		wait, err := e.executeStep(ctx, inst, step)
		if err != nil {
			inst.Status = entity.InstanceError
			inst.Error = err.Error()
			instancesFinished.WithLabelValues(seq.SequenceID, string(entity.InstanceError)).Inc()
			if saveErr := e.store.SaveInstance(ctx, inst); saveErr != nil {
				e.logger.Error().Err(saveErr).Str("instance_id", inst.InstanceID).Msg("❌ Falha ao persistir erro da instância")
			}
			e.logger.Error().Err(err).Str("instance_id", inst.InstanceID).Int("step", inst.StepsCompleted).
				Msg("❌ Passo da sequência falhou")
			return fmt.Errorf("sequência %s, passo %d: %w", seq.SequenceID, inst.StepsCompleted, err)
		}

		inst.StepsCompleted++
		wait += time.Duration(step.DelayMinutes) * time.Minute

		if wait > 0 {
			next := e.now().UTC().Add(wait)
			inst.NextRunAt = &next
			if err := e.store.SaveInstance(ctx, inst); err != nil {
				return fmt.Errorf("salvar instância %s: %w", inst.InstanceID, err)
			}
			e.logger.Debug().Str("instance_id", inst.InstanceID).Time("next_run_at", next).Msg("⏳ Sequência aguardando")
			return nil
		}

		if err := e.store.SaveInstance(ctx, inst); err != nil {
			return fmt.Errorf("salvar instância %s: %w", inst.InstanceID, err)
		}
	}

	done := e.now().UTC()
	inst.Status = entity.InstanceCompleted
	inst.CompletedAt = &done
	if err := e.store.SaveInstance(ctx, inst); err != nil {
		return fmt.Errorf("salvar instância %s: %w", inst.InstanceID, err)
	}
	instancesFinished.WithLabelValues(seq.SequenceID, string(entity.InstanceCompleted)).Inc()
	e.logger.Info().Str("instance_id", inst.InstanceID).Msg("✅ Sequência concluída")
	return nil
}

// Tick retoma as instâncias cuja espera venceu. Devolve quantas avançaram.
func (e *Engine) Tick(ctx context.Context) (int, error) {
	if e.locker != nil {
		ok, err := e.locker.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := e.locker.Release(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn().Err(err).Msg("⚠️ Falha ao liberar lock do scheduler")
			}
		}()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	instances, err := e.store.ListInstances(ctx)
	if err != nil {
		return 0, fmt.Errorf("listar instâncias: %w", err)
	}
	seqs, err := e.store.LoadSequences(ctx)
	if err != nil {
		return 0, fmt.Errorf("carregar sequências: %w", err)
	}
	byID := make(map[string]entity.AutomationSequence, len(seqs))
	for _, s := range seqs {
		byID[s.SequenceID] = s
	}

	now := e.now().UTC()
	advanced := 0
	var errs []error
	for _, inst := range instances {
		if !inst.Due(now) {
			continue
		}

		seq, ok := byID[inst.SequenceID]
		if !ok {
			inst.Status = entity.InstanceError
			inst.Error = entity.ErrSequenceNotFound.Error()
			if err := e.store.SaveInstance(ctx, inst); err != nil {
				errs = append(errs, err)
			}
			errs = append(errs, fmt.Errorf("instância %s: %w", inst.InstanceID, entity.ErrSequenceNotFound))
			continue
		}

		advanced++
		if err := e.advance(ctx, seq, inst); err != nil {
			errs = append(errs, err)
		}
	}

	if advanced > 0 {
		e.logger.Info().Int("advanced", advanced).Msg("⏱️ Tick do scheduler")
	}
	return advanced, errors.Join(errs...)
}

func (e *Engine) Status(ctx context.Context) (*Status, error) {
	seqs, err := e.store.LoadSequences(ctx)
	if err != nil {
		return nil, fmt.Errorf("carregar sequências: %w", err)
	}
	instances, err := e.store.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar instâncias: %w", err)
	}

	st := &Status{
		TotalSequences:  len(seqs),
		EventQueueSize:  e.queue.Size(),
		EventsProcessed: e.queue.Total(),
		Channels:        e.channels.describe(),
	}
	for _, s := range seqs {
		if s.Active {
			st.ActiveSequences++
		}
	}
	for _, inst := range instances {
		switch inst.Status {
		case entity.InstancePending:
			st.PendingInstances++
		case entity.InstanceRunning:
			st.RunningInstances++
		case entity.InstanceCompleted:
			st.CompletedInstances++
		case entity.InstanceError:
			st.ErrorInstances++
		}
	}
	return st, nil
}

func (e *Engine) Log(ctx context.Context) ([]entity.AutomationLogEntry, error) {
	return e.store.ListLog(ctx)
}

func (e *Engine) appendLog(ctx context.Context, entry entity.AutomationLogEntry) {
	if err := e.store.AppendLog(ctx, entry); err != nil {
		e.logger.Warn().Err(err).Str("action", entry.Action).Msg("⚠️ Falha ao gravar log de automação")
	}
}
